package server

import "time"

// SessionConfig holds per-session tunables.
type SessionConfig struct {
	// ReadTimeout is the WebSocket read deadline. Heartbeats keep an
	// idle but healthy connection under it.
	ReadTimeout time.Duration

	// WriteTimeout is the WebSocket write deadline.
	WriteTimeout time.Duration

	// HeartbeatInterval is how often the server pings the client.
	HeartbeatInterval time.Duration

	// MaxEventQueue is the event channel capacity. Events past it are
	// rejected, not queued.
	MaxEventQueue int

	// MaxMessageSize caps inbound WebSocket messages in bytes.
	MaxMessageSize int64

	// EvalDeadline bounds each directive expression evaluation.
	EvalDeadline time.Duration
}

// DefaultSessionConfig returns the default session configuration.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxEventQueue:     64,
		MaxMessageSize:    64 * 1024,
		EvalDeadline:      250 * time.Millisecond,
	}
}

// ManagerConfig holds session manager tunables.
type ManagerConfig struct {
	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int

	// IdleTimeout evicts sessions with no activity for this long.
	IdleTimeout time.Duration

	// SweepInterval is how often idle sessions are collected.
	SweepInterval time.Duration
}

// DefaultManagerConfig returns the default manager configuration.
func DefaultManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		MaxSessions:   1000,
		IdleTimeout:   5 * time.Minute,
		SweepInterval: 30 * time.Second,
	}
}
