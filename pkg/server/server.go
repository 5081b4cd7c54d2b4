package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/petal-go/petal/pkg/dom"
	"github.com/petal-go/petal/pkg/expr"
	"github.com/petal-go/petal/pkg/protocol"
)

// Page is the application's single page: directive-annotated markup
// plus an optional setup hook that defines signals and functions on the
// document before binding.
type Page struct {
	HTML  string
	Setup func(*dom.Document) error
}

// Server serves the page and its live sessions.
//
// GET / renders a fresh bound document. GET /ws opens a session: the
// server binds its own copy of the page, so session and client agree on
// binding IDs because both bind the same markup in the same order.
type Server struct {
	page       Page
	config     *SessionConfig
	manager    *Manager
	managerCfg *ManagerConfig
	logger     *slog.Logger
	metrics    *Metrics
	registry   *prometheus.Registry
	upgrader   websocket.Upgrader
	router     chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSessionConfig overrides the session configuration.
func WithSessionConfig(cfg *SessionConfig) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithManagerConfig overrides the session manager configuration.
func WithManagerConfig(cfg *ManagerConfig) Option {
	return func(s *Server) {
		s.managerCfg = cfg
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithCheckOrigin sets the WebSocket origin check.
func WithCheckOrigin(check func(*http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = check
	}
}

// New creates a server for a page.
func New(page Page, opts ...Option) *Server {
	s := &Server{
		page:   page,
		config: DefaultSessionConfig(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(s.registry)
	}
	if s.manager == nil {
		s.manager = NewManager(s.managerCfg, s.logger, s.metrics)
	}

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Shutdown closes every session and stops background work.
func (s *Server) Shutdown() {
	s.manager.Shutdown()
}

// Sessions returns the session manager.
func (s *Server) Sessions() *Manager {
	return s.manager
}

// newDocument binds a fresh copy of the page.
func (s *Server) newDocument(sink dom.PatchSink) (*dom.Document, error) {
	env := expr.New(expr.WithDeadline(s.config.EvalDeadline))

	doc, err := dom.ParseString(s.page.HTML,
		dom.WithSink(sink),
		dom.WithLogger(s.logger),
		dom.WithEnv(env),
	)
	if err != nil {
		return nil, err
	}

	if s.page.Setup != nil {
		if err := s.page.Setup(doc); err != nil {
			return nil, fmt.Errorf("page setup: %w", err)
		}
	}

	if err := doc.Bind(); err != nil {
		return nil, err
	}
	return doc, nil
}

// handleIndex renders the initial page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	doc, err := s.newDocument(nil)
	if err != nil {
		s.logger.Error("render failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer doc.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := doc.Render(w); err != nil {
		s.logger.Error("render write failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleWebSocket upgrades the connection and runs the handshake.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		s.metrics.recordWebSocketError("upgrade")
		return
	}

	if err := s.openSession(conn); err != nil {
		s.logger.Warn("session rejected", "error", err)
		conn.Close()
	}
}

// openSession performs the handshake and starts the session loops.
func (s *Server) openSession(conn *websocket.Conn) error {
	conn.SetReadLimit(s.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("handshake read: %w", err)
	}

	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		return fmt.Errorf("handshake decode: %w", err)
	}
	if frame.Type != protocol.FrameHandshake {
		return fmt.Errorf("expected handshake frame, got %s", frame.Type)
	}

	hs, err := protocol.DecodeHandshake(frame.Payload)
	if err != nil {
		return fmt.Errorf("handshake payload: %w", err)
	}
	if hs.Version > protocol.ProtocolVersion {
		return fmt.Errorf("unsupported protocol version %d", hs.Version)
	}

	session := NewSession(newSessionID(), conn, s.config, s.logger, s.metrics)

	doc, err := s.newDocument(session.CollectPatch)
	if err != nil {
		return fmt.Errorf("session document: %w", err)
	}
	session.AttachDocument(doc)

	if err := s.manager.Add(session); err != nil {
		doc.Close()
		return err
	}

	reply := protocol.EncodeHandshake(&protocol.Handshake{
		Version:   protocol.ProtocolVersion,
		SessionID: session.ID,
	})
	if !session.writeFrame(protocol.FrameHandshake, reply) {
		session.Close()
		return fmt.Errorf("handshake write failed")
	}

	session.Start()
	return nil
}
