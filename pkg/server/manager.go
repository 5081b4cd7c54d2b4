package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrTooManySessions is returned when the session cap is reached.
var ErrTooManySessions = errors.New("server: too many sessions")

// Manager tracks active sessions, enforces the session cap, and
// evicts idle sessions in the background.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	config  *ManagerConfig
	logger  *slog.Logger
	metrics *Metrics

	done      chan struct{}
	sweepDone chan struct{}
	stopOnce  sync.Once
}

// NewManager creates a session manager and starts its idle sweeper.
func NewManager(config *ManagerConfig, logger *slog.Logger, metrics *Metrics) *Manager {
	if config == nil {
		config = DefaultManagerConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		sessions:  make(map[string]*Session),
		config:    config,
		logger:    logger.With("component", "session_manager"),
		metrics:   metrics,
		done:      make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Add registers a session, enforcing the cap. The manager takes over
// close accounting via the session's close callback.
func (m *Manager) Add(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		return ErrTooManySessions
	}

	m.sessions[s.ID] = s
	s.onClose = m.remove
	m.metrics.recordSessionOpen()

	m.logger.Info("session added", "session", s.ID, "active", len(m.sessions))
	return nil
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	if _, ok := m.sessions[s.ID]; ok {
		delete(m.sessions, s.ID)
		m.metrics.recordSessionClose()
	}
	active := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("session removed", "session", s.ID, "active", active)
}

// Shutdown stops the sweeper and closes every session.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() {
		close(m.done)
		<-m.sweepDone
	})

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// sweep closes sessions idle past the timeout.
func (m *Manager) sweep() {
	defer close(m.sweepDone)

	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()

		case <-m.done:
			return
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.config.IdleTimeout)

	m.mu.RLock()
	var idle []*Session
	for _, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range idle {
		m.logger.Info("evicting idle session", "session", s.ID)
		s.Close()
	}
}

// newSessionID returns a 128-bit random identifier.
func newSessionID() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
