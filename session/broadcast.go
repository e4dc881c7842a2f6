package session

import (
	"log/slog"

	"github.com/Ruiisuuu/weebparty-server/domain"
	"github.com/Ruiisuuu/weebparty-server/metrics"
)

// ApplyLeaderUpdate validates a leader's playback state, merges it into the
// stored state and fans the raw payload out to every other scope member.
// The sender never receives its own update.
func (c *Coordinator) ApplyLeaderUpdate(userID string, state domain.PlaybackState) error {
	return c.applyLeaderState(userID, state, domain.EventFollowerUpdate)
}

// ApplyLeaderSeek is the discontinuous-jump variant: same authorization and
// merge, broadcast as an unconditional time correction.
func (c *Coordinator) ApplyLeaderSeek(userID string, state domain.PlaybackState) error {
	return c.applyLeaderState(userID, state, domain.EventFollowerSeeked)
}

func (c *Coordinator) applyLeaderState(userID string, state domain.PlaybackState, event string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := c.requireConnected(userID)
	if err != nil {
		return err
	}

	var scopeID string
	switch c.mode {
	case ModeSession:
		if u.SessionID == "" {
			return domain.State("Not in a session.")
		}
		if err := state.Validate(); err != nil {
			return err
		}
		s := c.sessions[u.SessionID]
		if s.OwnerID != userID {
			return domain.Authorization("Session locked.")
		}
		s.LastKnownTime = state.Time()
		s.IsPlaying = state.Playing()
		s.LastKnownTimeUpdatedAt = c.now()
		scopeID = s.ID
	case ModeGlobal:
		if err := state.Validate(); err != nil {
			return err
		}
		if c.leaderID != userID {
			return domain.Authorization("Not the leader.")
		}
		c.globalTime = state.Time()
		c.globalPlaying = state.Playing()
		c.globalUpdated = c.now()
		scopeID = globalScope
	}

	c.hub.Broadcast(scopeID, userID, event, state)
	metrics.StateBroadcasts.Inc()
	slog.Debug("state broadcast", "userId", userID, "event", event,
		"time", state.Time(), "playing", state.Playing())
	return nil
}
