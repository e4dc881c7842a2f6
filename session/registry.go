package session

import (
	"log/slog"

	"github.com/samber/lo"

	"github.com/Ruiisuuu/weebparty-server/domain"
	"github.com/Ruiisuuu/weebparty-server/identity"
	"github.com/Ruiisuuu/weebparty-server/metrics"
)

// CreateSession opens a new session owned by userID. The session always
// starts paused regardless of the requested play state: a joiner must not
// run ahead before the owner confirms playback.
func (c *Coordinator) CreateSession(userID string, state domain.PlaybackState) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := c.requireConnected(userID)
	if err != nil {
		return "", err
	}
	if c.mode != ModeSession {
		return "", domain.State("Sessions are not available in this deployment.")
	}
	if err := state.Validate(); err != nil {
		return "", err
	}
	if u.SessionID != "" {
		return "", domain.State("Already in a session.")
	}

	id := identity.Generate(func(candidate string) bool {
		_, taken := c.sessions[candidate]
		return taken
	})
	s := &Session{
		ID:                     id,
		OwnerID:                userID,
		IsPlaying:              false,
		LastKnownTime:          state.Time(),
		LastKnownTimeUpdatedAt: c.now(),
		MemberIDs:              []string{userID},
	}
	c.sessions[id] = s
	u.SessionID = id
	c.hub.Join(id, userID, u.Conn)

	metrics.ActiveSessions.Inc()
	slog.Info("session created", "sessionId", id, "ownerId", userID)
	return id, nil
}

// JoinSession adds userID to an existing session and asks the owner to push
// a fresh state snapshot to catch the joiner up.
func (c *Coordinator) JoinSession(userID, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := c.requireConnected(userID)
	if err != nil {
		return err
	}
	if c.mode != ModeSession {
		return domain.State("Sessions are not available in this deployment.")
	}
	if u.SessionID != "" {
		return domain.State("Already in a session.")
	}
	if !identity.Valid(sessionID) {
		return domain.NotFound("Invalid session ID.")
	}
	s, ok := c.sessions[sessionID]
	if !ok {
		return domain.NotFound("Invalid session ID.")
	}

	s.MemberIDs = append(s.MemberIDs, userID)
	u.SessionID = sessionID
	c.hub.Join(sessionID, userID, u.Conn)
	c.requestLeadLocked(s)

	slog.Info("session joined", "sessionId", sessionID, "userId", userID)
	return nil
}

// LeaveSession is the explicit counterpart to disconnect-driven cleanup.
func (c *Coordinator) LeaveSession(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := c.requireConnected(userID)
	if err != nil {
		return err
	}
	if u.SessionID == "" {
		return domain.State("Not in a session.")
	}
	c.leaveSessionLocked(u)
	return nil
}

// leaveSessionLocked removes u from its session's member list, deletes the
// session once empty, and promotes the longest-standing remaining member if
// the owner left. Callers hold c.mu.
func (c *Coordinator) leaveSessionLocked(u *User) {
	sessionID := u.SessionID
	u.SessionID = ""

	s, ok := c.sessions[sessionID]
	if !ok {
		return
	}
	s.MemberIDs = lo.Reject(s.MemberIDs, func(id string, _ int) bool {
		return id == u.ID
	})
	c.hub.Leave(sessionID, u.ID)
	slog.Info("session left", "sessionId", sessionID, "userId", u.ID)

	if len(s.MemberIDs) == 0 {
		delete(c.sessions, sessionID)
		metrics.ActiveSessions.Dec()
		slog.Info("session deleted", "sessionId", sessionID)
		return
	}
	if s.OwnerID == u.ID {
		s.OwnerID = s.MemberIDs[0]
		c.requestLeadLocked(s)
		slog.Info("session owner promoted", "sessionId", sessionID, "ownerId", s.OwnerID)
	}
}

// requestLeadLocked nudges the session owner to push a fresh state snapshot.
// Unicast to the owner only, never a broadcast. Callers hold c.mu.
func (c *Coordinator) requestLeadLocked(s *Session) {
	owner, ok := c.users[s.OwnerID]
	if !ok {
		return
	}
	if err := owner.Conn.Send(domain.EventLeadRequest, nil); err != nil {
		slog.Warn("lead request send failed", "sessionId", s.ID, "ownerId", s.OwnerID, "error", err)
	}
}
