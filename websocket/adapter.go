package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ruiisuuu/weebparty-server/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Conn adapts a gorilla websocket connection to the opaque handle the
// coordination core works with: send an event, or close. Outbound frames
// go through a buffered channel drained by the write pump.
type Conn struct {
	userID      string
	ws          *websocket.Conn
	send        chan []byte
	coordinator domain.Coordinator
	handler     domain.MessageHandler
}

func NewConn(ws *websocket.Conn, c domain.Coordinator, h domain.MessageHandler) *Conn {
	return &Conn{
		ws:          ws,
		send:        make(chan []byte, 256),
		coordinator: c,
		handler:     h,
	}
}

func (c *Conn) UserID() string { return c.userID }

func (c *Conn) Send(event string, payload any) error {
	var data json.RawMessage
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return err
		}
	}
	frame, err := json.Marshal(domain.Envelope{Type: event, Data: data})
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// Start registers the connection, delivers the assigned identity to the
// client and launches the pumps.
func (c *Conn) Start() {
	c.userID = c.coordinator.Connect(c)
	if err := c.Send(domain.EventUserID, map[string]string{"userId": c.userID}); err != nil {
		slog.Error("identity send failed", "userId", c.userID, "error", err)
	}
	go c.writePump()
	go c.readPump()
}

func (c *Conn) readPump() {
	defer func() {
		c.coordinator.Disconnect(c.userID)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("read error", "userId", c.userID, "error", err)
			}
			return
		}

		c.handler.Handle(c, c.userID, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
