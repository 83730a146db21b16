package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateTouchGet(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Shutdown()

	s := m.Create("127.0.0.1:5555", "test-agent")
	require.NotEmpty(t, s.ID)
	require.Equal(t, 1, m.Count())

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	require.Equal(t, s.RemoteAddr, got.RemoteAddr)

	before := got.LastActive
	time.Sleep(time.Millisecond)
	m.Touch(s.ID)
	after, ok := m.Get(s.ID)
	require.True(t, ok)
	require.True(t, after.LastActive.After(before))
}

func TestDestroyRemovesSession(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Shutdown()

	s := m.Create("10.0.0.1:1", "")
	m.Destroy(s.ID)
	_, ok := m.Get(s.ID)
	require.False(t, ok)
	require.Equal(t, 0, m.Count())
}

func TestCleanupLoopExpiresIdleSessions(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	defer m.Shutdown()

	s := m.Create("10.0.0.2:1", "")
	require.Equal(t, 1, m.Count())

	require.Eventually(t, func() bool {
		_, ok := m.Get(s.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestGetUnknownID(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Shutdown()
	_, ok := m.Get("nonexistent")
	require.False(t, ok)
}

func TestTouchUnknownIDIsNoop(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Shutdown()
	m.Touch("nonexistent")
}
