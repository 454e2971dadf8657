package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trackify-app/trackify/internal/domain/session"
)

// Server is the inbound adapter serving the web surface.
type Server struct {
	ui             http.Handler
	server         *http.Server
	addr           string
	allowedOrigins []string
	mapOrigin      string
	logger         *slog.Logger
	registry       *prometheus.Registry
	metrics        *Metrics
	healthChecker  *HealthChecker
	holder         *session.Holder
}

// Option is a functional option for configuring Server.
type Option func(*Server)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:5173" (localhost only).
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithAllowedOrigins adds origins allowed by DNS rebinding protection.
// The server's own origin is always allowed.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = append(s.allowedOrigins, origins...)
	}
}

// WithMapOrigin sets the origin the map overlay frames, e.g.
// "https://www.openstreetmap.org".
func WithMapOrigin(origin string) Option {
	return func(s *Server) {
		s.mapOrigin = origin
	}
}

// WithLogger sets the logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry sets the Prometheus registry served on /metrics.
// If not set, a registry with the runtime collectors is created.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithMetrics sets the web surface metrics. They must be registered on
// the registry passed to WithRegistry.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(s *Server) {
		s.healthChecker = hc
	}
}

// WithSessionHolder mirrors the cached session into the session_active gauge.
func WithSessionHolder(h *session.Holder) Option {
	return func(s *Server) {
		s.holder = h
	}
}

// NewServer creates the web surface around the UI handler.
func NewServer(ui http.Handler, opts ...Option) *Server {
	s := &Server{
		ui:     ui,
		addr:   "127.0.0.1:5173",
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(s.registry)
	}

	return s
}

// Metrics returns the metrics recorded by the server.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler builds the full middleware chain.
// Middleware order (outermost first):
//  1. MetricsMiddleware - Record duration and status (MUST be outermost to capture full duration)
//  2. RequestID - Extract/generate request ID and enrich logger
//  3. LocalhostOnly - Reject remote peers
//  4. DNSRebinding - Host and Origin must name this server
//  5. SecurityHeaders - CSP for the rendered pages
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.healthChecker != nil {
		mux.Handle("GET /health", s.healthChecker.Handler())
	} else {
		mux.Handle("GET /health", healthHandler())
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry: s.registry,
	}))
	// Favicon handler to prevent browser 404 noise
	mux.Handle("GET /favicon.ico", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.Handle("/", SecurityHeaders(s.mapOrigin)(s.ui))

	origins := append(selfOrigins(s.addr), s.allowedOrigins...)

	var handler http.Handler = mux
	handler = DNSRebindingProtection(origins)(handler)
	handler = LocalhostOnly(handler)
	handler = RequestIDMiddleware(s.logger)(handler)
	handler = MetricsMiddleware(s.metrics)(handler)
	return handler
}

// Start begins serving and blocks until the context is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	if s.holder != nil {
		unsubscribe := s.holder.Subscribe(func(ev session.Event) {
			if ev.Kind == session.Activated {
				s.metrics.SessionActive.Set(1)
			} else {
				s.metrics.SessionActive.Set(0)
			}
		})
		defer unsubscribe()
		if s.holder.Present() {
			s.metrics.SessionActive.Set(1)
		}
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web surface", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down web surface")
		return s.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return err
	}

	s.logger.Info("web surface shutdown complete")
	return nil
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	return s.shutdown()
}
