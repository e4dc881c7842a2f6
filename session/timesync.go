package session

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Ruiisuuu/weebparty-server/domain"
	"github.com/Ruiisuuu/weebparty-server/metrics"
)

// pendingRequest tracks one in-flight time relay. The leader recorded here
// is the only connection allowed to resolve it.
type pendingRequest struct {
	requesterID string
	leaderID    string
	timer       *time.Timer
}

// RequestTime relays a follower's time request to the current leader. The
// leader's eventual answer comes back through ResolveTime; if none arrives
// within the relay timeout, the requester gets a timeout error event. The
// server itself stores no answer for this path, it is a two-hop relay.
func (c *Coordinator) RequestTime(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := c.requireConnected(userID)
	if err != nil {
		return err
	}

	var leaderID string
	switch c.mode {
	case ModeSession:
		if u.SessionID == "" {
			return domain.State("Not in a session.")
		}
		leaderID = c.sessions[u.SessionID].OwnerID
	case ModeGlobal:
		leaderID = c.leaderID
	}
	if leaderID == "" {
		return domain.Validation("No leader.")
	}
	if leaderID == userID {
		return domain.Authorization("Leaders cannot request time.")
	}
	leader, ok := c.users[leaderID]
	if !ok {
		return domain.Validation("No leader.")
	}

	requestID := uuid.New().String()
	p := &pendingRequest{requesterID: userID, leaderID: leaderID}
	p.timer = time.AfterFunc(c.relayTimeout, func() { c.expirePending(requestID) })
	c.pending[requestID] = p

	if err := leader.Conn.Send(domain.EventTimeRequest, map[string]string{"requestId": requestID}); err != nil {
		slog.Warn("time request send failed", "requestId", requestID, "leaderId", leaderID, "error", err)
	}
	metrics.TimeRequestsRelayed.Inc()
	slog.Debug("time request relayed", "requestId", requestID, "from", userID, "to", leaderID)
	return nil
}

// ResolveTime forwards a leader's answer, verbatim, to the requester that
// opened the relay. Late answers (after timeout or requester disconnect)
// are dropped, and only the leader the request was sent to may answer.
func (c *Coordinator) ResolveTime(userID, requestID string, state json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.requireConnected(userID); err != nil {
		return err
	}
	p, ok := c.pending[requestID]
	if !ok {
		slog.Debug("time response for unknown request", "requestId", requestID, "userId", userID)
		return nil
	}
	if p.leaderID != userID {
		return domain.Authorization("Not the leader for this request.")
	}

	p.timer.Stop()
	delete(c.pending, requestID)

	requester, ok := c.users[p.requesterID]
	if !ok {
		slog.Debug("dropping time response, requester gone", "requestId", requestID)
		return nil
	}
	if err := requester.Conn.Send(domain.EventTimeUpdate, state); err != nil {
		slog.Warn("time update send failed", "requestId", requestID, "requesterId", p.requesterID, "error", err)
	}
	return nil
}

// expirePending fires from the relay timer: the pending entry is dropped
// and the requester, if still connected, is told the request timed out.
func (c *Coordinator) expirePending(requestID string) {
	c.mu.Lock()
	p, ok := c.pending[requestID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, requestID)
	requester := c.users[p.requesterID]
	c.mu.Unlock()

	metrics.TimeRequestTimeouts.Inc()
	slog.Warn("time request timed out", "requestId", requestID, "requesterId", p.requesterID)
	if requester != nil {
		requester.Conn.Send(domain.EventError, domain.ErrorPayload{
			In:           domain.EventFollowerTimeReq,
			Kind:         domain.KindTimeout,
			ErrorMessage: "Time request timed out.",
		})
	}
}

// cancelPendingLocked drops every relay opened by userID so a late leader
// answer has nowhere to land. Callers hold c.mu.
func (c *Coordinator) cancelPendingLocked(userID string) {
	for id, p := range c.pending {
		if p.requesterID != userID {
			continue
		}
		p.timer.Stop()
		delete(c.pending, id)
		slog.Debug("pending time request cancelled", "requestId", id, "requesterId", userID)
	}
}
