// Package session tracks control-plane client sessions: the HTTP/MCP
// clients connected to a running noiseforge daemon's configuration
// channel, independent of the spec's positionally-identified tracks and
// filters. Grounded on the teacher's SessionManager (session.go): a
// UUID-keyed map guarded by a mutex, a background cleanup goroutine that
// expires idle entries, and Touch/Destroy/Count accessors, stripped of
// every radio-specific field (frequency, mode, SSRC, GeoIP, ...).
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one connected control-plane client.
type Session struct {
	ID         string
	RemoteAddr string
	UserAgent  string
	CreatedAt  time.Time
	LastActive time.Time
}

// Manager owns the set of live control-plane sessions and expires ones
// that have gone idle past its timeout, mirroring the teacher's
// cleanupLoop/cleanupInactiveSessions pair but on a single, much smaller
// map with no per-entry side tables.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	timeout  time.Duration

	stop chan struct{}
	once sync.Once
}

// NewManager builds a Manager that expires sessions idle for longer than
// timeout, and starts its background cleanup loop. Call Shutdown to stop
// the loop.
func NewManager(timeout time.Duration) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		stop:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Create registers a new session for a connecting client and returns it.
func (m *Manager) Create(remoteAddr, userAgent string) *Session {
	now := time.Now()
	s := &Session{
		ID:         uuid.NewString(),
		RemoteAddr: remoteAddr,
		UserAgent:  userAgent,
		CreatedAt:  now,
		LastActive: now,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Touch refreshes a session's last-active time, extending its TTL. It is
// a no-op if id is unknown (e.g. already expired).
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.LastActive = time.Now()
	}
}

// Get returns the session with the given id, if it is still live.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Destroy removes a session immediately (e.g. on clean client
// disconnect), rather than waiting for the idle timeout.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count reports the number of currently live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// cleanupLoop periodically evicts sessions idle past m.timeout, matching
// the teacher's ticker-driven cleanupInactiveSessions.
func (m *Manager) cleanupLoop() {
	if m.timeout <= 0 {
		<-m.stop
		return
	}
	ticker := time.NewTicker(m.timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.evictExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) evictExpired() {
	cutoff := time.Now().Add(-m.timeout)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.LastActive.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

// Shutdown stops the cleanup loop. Safe to call more than once.
func (m *Manager) Shutdown() {
	m.once.Do(func() { close(m.stop) })
}
