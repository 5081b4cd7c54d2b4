package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/petal-go/petal/internal/errors"
	"github.com/petal-go/petal/pkg/server"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "petal.json"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default bind host.
	DefaultHost = "localhost"

	// DefaultTemplate is the default page template path.
	DefaultTemplate = "index.html"
)

// Config is the complete petal.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Template is the path to the page template, relative to the
	// config file.
	Template string `json:"template,omitempty"`

	// Server contains HTTP server settings.
	Server ServerConfig `json:"server,omitempty"`

	// Session contains per-session settings.
	Session SessionConfig `json:"session,omitempty"`

	// Limits contains session manager settings.
	Limits LimitsConfig `json:"limits,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the address to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`
}

// SessionConfig contains per-session settings. Durations are strings
// in time.ParseDuration format ("30s", "250ms").
type SessionConfig struct {
	ReadTimeout       string `json:"readTimeout,omitempty"`
	WriteTimeout      string `json:"writeTimeout,omitempty"`
	HeartbeatInterval string `json:"heartbeatInterval,omitempty"`
	MaxEventQueue     int    `json:"maxEventQueue,omitempty"`
	MaxMessageSize    int64  `json:"maxMessageSize,omitempty"`
	EvalDeadline      string `json:"evalDeadline,omitempty"`
}

// LimitsConfig contains session manager settings.
type LimitsConfig struct {
	MaxSessions   int    `json:"maxSessions,omitempty"`
	IdleTimeout   string `json:"idleTimeout,omitempty"`
	SweepInterval string `json:"sweepInterval,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `json:"format,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Template: DefaultTemplate,
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads petal.json from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E101").
				WithDetail("no " + ConfigFileName + " in " + filepath.Dir(path))
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E102").WithDetail(err.Error())
	}

	cfg.configPath = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return "."
	}
	return filepath.Dir(c.configPath)
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// TemplatePath returns the template path resolved against the config
// directory.
func (c *Config) TemplatePath() string {
	if filepath.IsAbs(c.Template) {
		return c.Template
	}
	return filepath.Join(c.Dir(), c.Template)
}

// Validate checks field ranges and duration syntax.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("E103").
			WithDetail(fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Template == "" {
		return errors.New("E103").WithDetail("template must not be empty")
	}

	durations := map[string]string{
		"session.readTimeout":       c.Session.ReadTimeout,
		"session.writeTimeout":      c.Session.WriteTimeout,
		"session.heartbeatInterval": c.Session.HeartbeatInterval,
		"session.evalDeadline":      c.Session.EvalDeadline,
		"limits.idleTimeout":        c.Limits.IdleTimeout,
		"limits.sweepInterval":      c.Limits.SweepInterval,
	}
	for field, val := range durations {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			return errors.New("E103").
				WithDetail(fmt.Sprintf("%s: %v", field, err))
		}
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New("E103").
			WithDetail("log.level must be debug, info, warn, or error")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.New("E103").
			WithDetail("log.format must be text or json")
	}

	return nil
}

// SessionConfig builds the server session configuration, with defaults
// for unset fields. Call after Validate; durations are assumed parsable.
func (c *Config) SessionConfig() *server.SessionConfig {
	cfg := server.DefaultSessionConfig()

	if c.Session.ReadTimeout != "" {
		cfg.ReadTimeout, _ = time.ParseDuration(c.Session.ReadTimeout)
	}
	if c.Session.WriteTimeout != "" {
		cfg.WriteTimeout, _ = time.ParseDuration(c.Session.WriteTimeout)
	}
	if c.Session.HeartbeatInterval != "" {
		cfg.HeartbeatInterval, _ = time.ParseDuration(c.Session.HeartbeatInterval)
	}
	if c.Session.EvalDeadline != "" {
		cfg.EvalDeadline, _ = time.ParseDuration(c.Session.EvalDeadline)
	}
	if c.Session.MaxEventQueue > 0 {
		cfg.MaxEventQueue = c.Session.MaxEventQueue
	}
	if c.Session.MaxMessageSize > 0 {
		cfg.MaxMessageSize = c.Session.MaxMessageSize
	}
	return cfg
}

// ManagerConfig builds the session manager configuration.
func (c *Config) ManagerConfig() *server.ManagerConfig {
	cfg := server.DefaultManagerConfig()

	if c.Limits.MaxSessions > 0 {
		cfg.MaxSessions = c.Limits.MaxSessions
	}
	if c.Limits.IdleTimeout != "" {
		cfg.IdleTimeout, _ = time.ParseDuration(c.Limits.IdleTimeout)
	}
	if c.Limits.SweepInterval != "" {
		cfg.SweepInterval, _ = time.ParseDuration(c.Limits.SweepInterval)
	}
	return cfg
}
