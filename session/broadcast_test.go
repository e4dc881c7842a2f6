package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruiisuuu/weebparty-server/domain"
)

func TestApplyLeaderUpdate_Scenario(t *testing.T) {
	c := newSessionCoordinator()
	aConn, bConn := &mockConn{}, &mockConn{}
	a := c.Connect(aConn)
	b := c.Connect(bConn)

	// A creates with a playing intent; the session still starts paused
	sessionID, err := c.CreateSession(a, playback(0, true))
	require.NoError(t, err)
	require.NoError(t, c.JoinSession(b, sessionID))
	require.Len(t, aConn.eventsOf(domain.EventLeadRequest), 1)

	update := playback(5000, true)
	require.NoError(t, c.ApplyLeaderUpdate(a, update))

	// B receives the raw validated payload, A is never echoed
	got := bConn.eventsOf(domain.EventFollowerUpdate)
	require.Len(t, got, 1)
	assert.Equal(t, update, got[0].payload)
	assert.Empty(t, aConn.eventsOf(domain.EventFollowerUpdate))

	c.mu.Lock()
	s := c.sessions[sessionID]
	c.mu.Unlock()
	assert.Equal(t, float64(5000), s.LastKnownTime)
	assert.True(t, s.IsPlaying)
	assert.False(t, s.LastKnownTimeUpdatedAt.IsZero())
}

func TestApplyLeaderUpdate_RejectedFromFollower(t *testing.T) {
	c := newSessionCoordinator()
	aConn, bConn, dConn := &mockConn{}, &mockConn{}, &mockConn{}
	a := c.Connect(aConn)
	b := c.Connect(bConn)
	d := c.Connect(dConn)

	sessionID, err := c.CreateSession(a, playback(0, false))
	require.NoError(t, err)
	require.NoError(t, c.JoinSession(b, sessionID))
	require.NoError(t, c.JoinSession(d, sessionID))

	err = c.ApplyLeaderUpdate(b, playback(7000, true))
	require.Error(t, err)
	assert.Equal(t, "Session locked.", err.Error())
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))

	// rejection happens before any broadcast or mutation
	assert.Empty(t, aConn.eventsOf(domain.EventFollowerUpdate))
	assert.Empty(t, dConn.eventsOf(domain.EventFollowerUpdate))
	c.mu.Lock()
	s := c.sessions[sessionID]
	c.mu.Unlock()
	assert.Equal(t, float64(0), s.LastKnownTime)
	assert.False(t, s.IsPlaying)
}

func TestApplyLeaderUpdate_NotInSession(t *testing.T) {
	c := newSessionCoordinator()
	a := c.Connect(&mockConn{})

	err := c.ApplyLeaderUpdate(a, playback(0, false))
	require.Error(t, err)
	assert.Equal(t, "Not in a session.", err.Error())
	assert.Equal(t, domain.KindState, domain.KindOf(err))
}

func TestApplyLeaderUpdate_InvalidPayload(t *testing.T) {
	c := newSessionCoordinator()
	aConn, bConn := &mockConn{}, &mockConn{}
	a := c.Connect(aConn)
	b := c.Connect(bConn)

	sessionID, err := c.CreateSession(a, playback(0, false))
	require.NoError(t, err)
	require.NoError(t, c.JoinSession(b, sessionID))

	err = c.ApplyLeaderUpdate(a, domain.PlaybackState{LastKnownTime: floatPtr(-1), IsPlaying: boolPtr(true)})
	require.Error(t, err)
	assert.Equal(t, "Invalid lastKnownTime.", err.Error())
	assert.Empty(t, bConn.eventsOf(domain.EventFollowerUpdate))
}

func TestApplyLeaderSeek(t *testing.T) {
	c := newSessionCoordinator()
	aConn, bConn := &mockConn{}, &mockConn{}
	a := c.Connect(aConn)
	b := c.Connect(bConn)

	sessionID, err := c.CreateSession(a, playback(0, false))
	require.NoError(t, err)
	require.NoError(t, c.JoinSession(b, sessionID))

	seek := playback(120000, true)
	require.NoError(t, c.ApplyLeaderSeek(a, seek))

	got := bConn.eventsOf(domain.EventFollowerSeeked)
	require.Len(t, got, 1)
	assert.Equal(t, seek, got[0].payload)

	// seek merges into stored state the same way an update does
	c.mu.Lock()
	s := c.sessions[sessionID]
	c.mu.Unlock()
	assert.Equal(t, float64(120000), s.LastKnownTime)
	assert.True(t, s.IsPlaying)

	// and is just as locked down
	err = c.ApplyLeaderSeek(b, seek)
	require.Error(t, err)
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
}
