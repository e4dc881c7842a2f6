package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruiisuuu/weebparty-server/domain"
	"github.com/Ruiisuuu/weebparty-server/hub"
	"github.com/Ruiisuuu/weebparty-server/identity"
)

type sentEvent struct {
	event   string
	payload any
}

type mockConn struct {
	mu      sync.Mutex
	events  []sentEvent
	sendErr error
}

func (m *mockConn) Send(event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.events = append(m.events, sentEvent{event: event, payload: payload})
	return nil
}

func (m *mockConn) Close() error { return nil }

func (m *mockConn) eventsOf(event string) []sentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentEvent
	for _, e := range m.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func playback(ms float64, playing bool) domain.PlaybackState {
	return domain.PlaybackState{LastKnownTime: &ms, IsPlaying: &playing}
}

func newSessionCoordinator() *Coordinator {
	return New(ModeSession, hub.New(), time.Second)
}

func newGlobalCoordinator() *Coordinator {
	return New(ModeGlobal, hub.New(), time.Second)
}

// checkMembership asserts the core invariants: every user's session exists
// and lists the user, and no session is empty.
func checkMembership(t *testing.T, c *Coordinator) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, u := range c.users {
		if u.SessionID == "" {
			continue
		}
		s, ok := c.sessions[u.SessionID]
		require.True(t, ok, "user %s references dead session %s", id, u.SessionID)
		assert.Contains(t, s.MemberIDs, id)
	}
	for id, s := range c.sessions {
		assert.NotEmpty(t, s.MemberIDs, "session %s is empty but alive", id)
		assert.Contains(t, s.MemberIDs, s.OwnerID, "session %s owner not a member", id)
	}
}

func TestConnect_AssignsUniqueIDs(t *testing.T) {
	c := newSessionCoordinator()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := c.Connect(&mockConn{})
		require.True(t, identity.Valid(id))
		require.False(t, seen[id], "id %q assigned twice", id)
		seen[id] = true
	}

	users, sessions := c.Stats()
	assert.Equal(t, 100, users)
	assert.Equal(t, 0, sessions)
}

func TestDisconnect_Idempotent(t *testing.T) {
	c := newSessionCoordinator()
	id := c.Connect(&mockConn{})

	c.Disconnect(id)
	c.Disconnect(id) // late transport callback, must be a no-op

	users, _ := c.Stats()
	assert.Equal(t, 0, users)
}

func TestOperationsOnDisconnectedUser(t *testing.T) {
	c := newSessionCoordinator()
	id := c.Connect(&mockConn{})
	c.Disconnect(id)

	_, err := c.CreateSession(id, playback(0, false))
	assert.Equal(t, domain.KindDisconnected, domain.KindOf(err))

	err = c.JoinSession(id, "cba82ca5f59a35e6")
	assert.Equal(t, domain.KindDisconnected, domain.KindOf(err))

	err = c.ApplyLeaderUpdate(id, playback(0, false))
	assert.Equal(t, domain.KindDisconnected, domain.KindOf(err))

	err = c.RequestTime(id)
	assert.Equal(t, domain.KindDisconnected, domain.KindOf(err))
}

func TestMembershipConsistency(t *testing.T) {
	c := newSessionCoordinator()

	a := c.Connect(&mockConn{})
	b := c.Connect(&mockConn{})
	d := c.Connect(&mockConn{})

	sessionID, err := c.CreateSession(a, playback(0, false))
	require.NoError(t, err)
	require.NoError(t, c.JoinSession(b, sessionID))
	require.NoError(t, c.JoinSession(d, sessionID))
	checkMembership(t, c)

	require.NoError(t, c.LeaveSession(b))
	checkMembership(t, c)

	c.Disconnect(a)
	checkMembership(t, c)

	c.Disconnect(d)
	checkMembership(t, c)

	_, sessions := c.Stats()
	assert.Equal(t, 0, sessions)
}
