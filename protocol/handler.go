package protocol

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Ruiisuuu/weebparty-server/domain"
	"github.com/Ruiisuuu/weebparty-server/metrics"
)

// Handler decodes inbound frames and routes them to the coordination core.
// Failures are reported to the originating connection only, as an "error"
// event; broadcast recipients never learn about a rejected request.
type Handler struct {
	coordinator domain.Coordinator
}

func NewHandler(c domain.Coordinator) *Handler {
	return &Handler{coordinator: c}
}

func (h *Handler) Handle(conn domain.Connection, userID string, data []byte) {
	metrics.MessagesReceived.Inc()

	var msg domain.Envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("invalid frame", "userId", userID, "error", err)
		h.sendError(conn, "", domain.Validation("Invalid message."))
		return
	}

	switch msg.Type {
	case domain.EventCreateSession:
		state, err := decodeState(msg.Data)
		if err == nil {
			var sessionID string
			if sessionID, err = h.coordinator.CreateSession(userID, state); err == nil {
				h.send(conn, domain.EventSessionCreated, map[string]string{"sessionId": sessionID})
			}
		}
		if err != nil {
			h.sendError(conn, msg.Type, err)
		}

	case domain.EventJoinSession:
		var body struct {
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(msg.Data, &body); err != nil {
			h.sendError(conn, msg.Type, domain.NotFound("Invalid session ID."))
			return
		}
		if err := h.coordinator.JoinSession(userID, body.SessionID); err != nil {
			h.sendError(conn, msg.Type, err)
			return
		}
		h.send(conn, domain.EventSessionJoined, map[string]string{"sessionId": body.SessionID})

	case domain.EventLeaveSession:
		if err := h.coordinator.LeaveSession(userID); err != nil {
			h.sendError(conn, msg.Type, err)
			return
		}
		h.send(conn, domain.EventSessionLeft, nil)

	case domain.EventLeaderUpdate, domain.EventStateUpdate:
		h.applyState(conn, userID, msg, h.coordinator.ApplyLeaderUpdate)

	case domain.EventLeaderSeeked:
		h.applyState(conn, userID, msg, h.coordinator.ApplyLeaderSeek)

	case domain.EventFollowerTimeReq:
		if err := h.coordinator.RequestTime(userID); err != nil {
			h.sendError(conn, msg.Type, err)
		}

	case domain.EventTimeResponse:
		var body struct {
			RequestID string          `json:"requestId"`
			State     json.RawMessage `json:"state"`
		}
		if err := json.Unmarshal(msg.Data, &body); err != nil || body.RequestID == "" {
			h.sendError(conn, msg.Type, domain.Validation("Invalid time response."))
			return
		}
		if err := h.coordinator.ResolveTime(userID, body.RequestID, body.State); err != nil {
			h.sendError(conn, msg.Type, err)
		}

	case domain.EventChangeLeader:
		isLeader, err := h.coordinator.ToggleLeader(userID)
		if err != nil {
			h.sendError(conn, msg.Type, err)
			return
		}
		h.send(conn, domain.EventLeaderStatus, map[string]bool{"isLeader": isLeader})

	default:
		slog.Warn("unknown event", "userId", userID, "type", msg.Type)
		h.sendError(conn, msg.Type, domain.Validation("Unknown event."))
	}
}

func (h *Handler) applyState(conn domain.Connection, userID string, msg domain.Envelope, apply func(string, domain.PlaybackState) error) {
	state, err := decodeState(msg.Data)
	if err == nil {
		err = apply(userID, state)
	}
	if err != nil {
		h.sendError(conn, msg.Type, err)
	}
}

// decodeState catches structurally malformed payloads; the coordinator
// re-validates field constraints behind its liveness guard.
func decodeState(data []byte) (domain.PlaybackState, error) {
	var state domain.PlaybackState
	if err := json.Unmarshal(data, &state); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "isPlaying" {
			return state, domain.Validation("Invalid isPlaying.")
		}
		return state, domain.Validation("Invalid lastKnownTime.")
	}
	return state, nil
}

func (h *Handler) send(conn domain.Connection, event string, payload any) {
	if err := conn.Send(event, payload); err != nil {
		slog.Warn("send failed", "event", event, "error", err)
	}
}

func (h *Handler) sendError(conn domain.Connection, in string, err error) {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.KindValidation
	}
	metrics.ProtocolErrors.WithLabelValues(string(kind)).Inc()
	slog.Warn("request rejected", "event", in, "kind", kind, "error", err)

	payload := domain.ErrorPayload{In: in, Kind: kind, ErrorMessage: err.Error()}
	if sendErr := conn.Send(domain.EventError, payload); sendErr != nil {
		slog.Warn("error event send failed", "event", in, "error", sendErr)
	}
}
