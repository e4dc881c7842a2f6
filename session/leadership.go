package session

import (
	"log/slog"

	"github.com/Ruiisuuu/weebparty-server/domain"
)

// ToggleLeader claims or releases the global leadership lock. Release is
// only possible for the current holder; a claim while someone else holds
// the lock is rejected. At most one leader exists at any instant.
func (c *Coordinator) ToggleLeader(userID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.requireConnected(userID); err != nil {
		return false, err
	}
	if c.mode != ModeGlobal {
		return false, domain.State("Leader toggling is not available in this deployment.")
	}

	switch {
	case c.leaderID == userID:
		c.leaderID = ""
		slog.Info("leadership released", "userId", userID)
		return false, nil
	case c.leaderID == "":
		c.leaderID = userID
		slog.Info("leadership claimed", "userId", userID)
		return true, nil
	default:
		return false, domain.Authorization("Another user is already leading.")
	}
}

// IsLeader reports whether userID holds the global leadership lock.
func (c *Coordinator) IsLeader(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return userID != "" && c.leaderID == userID
}

// LeaderID returns the current global leader id, or "" when unset.
func (c *Coordinator) LeaderID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaderID
}
