package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jlov7/Switchboard/internal/domain/auth"
	"github.com/jlov7/Switchboard/internal/port/inbound"
)

// shutdownTimeout bounds how long in-flight requests may drain on stop.
const shutdownTimeout = 10 * time.Second

// Server is the inbound adapter that exposes the switchboard core over
// HTTP. It owns the Prometheus registry backing /metrics and the reviewer
// keyring guarding the approval endpoints.
type Server struct {
	core     inbound.Switchboard
	handler  *Handler
	addr     string
	keyring  *auth.Keyring
	registry *prometheus.Registry
	metrics  *Metrics
	logger   *slog.Logger
	server   *http.Server
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithAddr sets the listen address. Default is ":8000".
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithReviewerKeyring guards /approve and /approvals/pending with the given
// keyring. An empty keyring leaves them open.
func WithReviewerKeyring(keyring *auth.Keyring) Option {
	return func(s *Server) { s.keyring = keyring }
}

// WithInstrumentation shares a registry and metrics set created by the
// caller, so service observers and the HTTP layer record into one place.
func WithInstrumentation(registry *prometheus.Registry, metrics *Metrics) Option {
	return func(s *Server) {
		s.registry = registry
		s.metrics = metrics
	}
}

// NewServer creates an API server over the given core.
func NewServer(core inbound.Switchboard, opts ...Option) *Server {
	s := &Server{
		core:    core,
		addr:    ":8000",
		keyring: auth.ParseKeyring(""),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.metrics = NewMetrics(s.registry)
	}
	s.handler = NewHandler(core,
		WithHandlerLogger(s.logger),
		WithHandlerMetrics(s.metrics),
	)

	return s
}

// Routes builds the endpoint mux wrapped with the middleware chain.
func (s *Server) Routes() http.Handler {
	guard := ReviewerAuthMiddleware(s.keyring, s.logger)

	mux := http.NewServeMux()
	mux.Handle("POST /route",
		MetricsMiddleware(s.metrics, "/route")(http.HandlerFunc(s.handler.handleRoute)))
	mux.Handle("POST /approve",
		MetricsMiddleware(s.metrics, "/approve")(guard(http.HandlerFunc(s.handler.handleApprove))))
	mux.Handle("POST /policy/check",
		MetricsMiddleware(s.metrics, "/policy/check")(http.HandlerFunc(s.handler.handlePolicyCheck)))
	mux.Handle("GET /approvals/pending",
		MetricsMiddleware(s.metrics, "/approvals/pending")(guard(http.HandlerFunc(s.handler.handlePendingApprovals))))
	mux.Handle("POST /audit/verify",
		MetricsMiddleware(s.metrics, "/audit/verify")(http.HandlerFunc(s.handler.handleAuditVerify)))
	mux.Handle("GET /healthz", http.HandlerFunc(s.handler.handleHealthz))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry: s.registry,
	}))

	return RequestIDMiddleware(s.logger)(mux)
}

// Start begins serving HTTP requests. It blocks until the context is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down HTTP server")
		return s.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown drains in-flight requests and stops the server.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return err
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	return s.shutdown()
}
