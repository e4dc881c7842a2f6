// Package session is the coordination core: connection identity, session
// membership, leadership exclusivity, validated state fan-out and the
// follower time-sync relay. All shared state lives behind one mutex; no
// operation holds it across a wait on another connection.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Ruiisuuu/weebparty-server/domain"
	"github.com/Ruiisuuu/weebparty-server/hub"
	"github.com/Ruiisuuu/weebparty-server/identity"
	"github.com/Ruiisuuu/weebparty-server/metrics"
)

// Mode selects how leadership is scoped.
type Mode string

const (
	// ModeSession gives each session a fixed owner whose state is
	// authoritative for that session's members.
	ModeSession Mode = "session"
	// ModeGlobal shares a single toggleable leader across all connections.
	ModeGlobal Mode = "global"
)

// globalScope is the broadcast scope every connection joins in ModeGlobal.
const globalScope = "*"

// User is a connected client. Owned exclusively by the coordinator.
type User struct {
	ID        string
	SessionID string // empty while not in a session
	Conn      domain.Connection
}

// Session is one shared playback timeline. MemberIDs keeps join order;
// the oldest remaining member is promoted if the owner leaves.
type Session struct {
	ID                     string
	OwnerID                string
	IsPlaying              bool
	LastKnownTime          float64
	LastKnownTimeUpdatedAt time.Time
	MemberIDs              []string
}

type Coordinator struct {
	mode         Mode
	hub          *hub.Hub
	relayTimeout time.Duration
	now          func() time.Time

	mu       sync.Mutex
	users    map[string]*User
	sessions map[string]*Session
	pending  map[string]*pendingRequest

	// ModeGlobal leadership and state
	leaderID      string
	globalPlaying bool
	globalTime    float64
	globalUpdated time.Time
}

func New(mode Mode, h *hub.Hub, relayTimeout time.Duration) *Coordinator {
	return &Coordinator{
		mode:         mode,
		hub:          h,
		relayTimeout: relayTimeout,
		now:          time.Now,
		users:        make(map[string]*User),
		sessions:     make(map[string]*Session),
		pending:      make(map[string]*pendingRequest),
	}
}

// Connect allocates an identity for a fresh connection and registers it.
// The returned id is what the client presents on every later event.
func (c *Coordinator) Connect(conn domain.Connection) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := identity.Generate(func(candidate string) bool {
		_, taken := c.users[candidate]
		return taken
	})
	c.users[id] = &User{ID: id, Conn: conn}
	if c.mode == ModeGlobal {
		c.hub.Join(globalScope, id, conn)
	}

	metrics.ActiveConnections.Inc()
	metrics.TotalConnections.Inc()
	slog.Info("user connected", "userId", id)
	return id
}

// Disconnect unwinds membership, leadership and pending relays for an
// identity, then removes it. Safe to call twice; a second call is a no-op
// so late transport callbacks cannot resurrect removed state.
func (c *Coordinator) Disconnect(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, ok := c.users[userID]
	if !ok {
		slog.Debug("disconnect for unknown user", "userId", userID)
		return
	}

	if u.SessionID != "" {
		c.leaveSessionLocked(u)
	}
	if c.mode == ModeGlobal {
		if c.leaderID == userID {
			c.leaderID = ""
			slog.Info("leadership released on disconnect", "userId", userID)
		}
		c.hub.Leave(globalScope, userID)
	}
	c.cancelPendingLocked(userID)
	delete(c.users, userID)

	metrics.ActiveConnections.Dec()
	slog.Info("user disconnected", "userId", userID)
}

// requireConnected is the liveness guard every operation runs first.
// Callers hold c.mu.
func (c *Coordinator) requireConnected(userID string) (*User, error) {
	u, ok := c.users[userID]
	if !ok {
		return nil, domain.Disconnected()
	}
	return u, nil
}

// Stats reports live user and session counts.
func (c *Coordinator) Stats() (users, sessions int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.users), len(c.sessions)
}
