// Package app wraps the server into a single runnable application.
//
// It exists so embedding Petal takes three lines:
//
//	a := app.New(app.Config{Page: server.Page{HTML: page}, Addr: ":3000"})
//	a.Run(context.Background())
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/petal-go/petal/pkg/server"
)

// Config configures an App.
type Config struct {
	// Page is the application page. Required.
	Page server.Page

	// Addr is the listen address for Run (default ":3000").
	Addr string

	// Logger is the application logger (default slog.Default()).
	Logger *slog.Logger

	// Session overrides the session configuration.
	Session *server.SessionConfig

	// Limits overrides the session manager configuration.
	Limits *server.ManagerConfig

	// Registry is the Prometheus registry (default: a private one).
	Registry *prometheus.Registry

	// AllowAnyOrigin disables the WebSocket origin check. Intended for
	// development.
	AllowAnyOrigin bool
}

// App is a runnable Petal application.
type App struct {
	config Config
	server *server.Server
	logger *slog.Logger
}

// New creates an application from the configuration.
func New(cfg Config) *App {
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []server.Option{
		server.WithLogger(logger),
	}
	if cfg.Session != nil {
		opts = append(opts, server.WithSessionConfig(cfg.Session))
	}
	if cfg.Limits != nil {
		opts = append(opts, server.WithManagerConfig(cfg.Limits))
	}
	if cfg.Registry != nil {
		opts = append(opts, server.WithRegistry(cfg.Registry))
	}
	if cfg.AllowAnyOrigin {
		opts = append(opts, server.WithCheckOrigin(func(*http.Request) bool {
			return true
		}))
	}

	srv := server.New(cfg.Page, opts...)

	return &App{
		config: cfg,
		server: srv,
		logger: logger,
	}
}

// ServeHTTP implements http.Handler, for mounting the app under an
// existing router.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.server.ServeHTTP(w, r)
}

// Server returns the underlying server.
func (a *App) Server() *server.Server {
	return a.server
}

// Run serves until the context is canceled, then shuts down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:    a.config.Addr,
		Handler: a,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.config.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		a.logger.Info("shutting down")
		a.server.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// NewLogger builds a slog.Logger from textual level and format names,
// as they appear in petal.json.
func NewLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
