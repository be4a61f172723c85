// Package server assembles the relay: it wires the language model client,
// webhook client, circuit breaker and metrics into the processing pipeline,
// mounts the HTTP routes and runs the listener until its context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/teilomillet/nbassist/config"
	"github.com/teilomillet/nbassist/gemini"
	"github.com/teilomillet/nbassist/server/circuitbreaker"
	"github.com/teilomillet/nbassist/server/handlers"
	"github.com/teilomillet/nbassist/server/metrics"
	"github.com/teilomillet/nbassist/server/middleware"
	"github.com/teilomillet/nbassist/server/processing"
	"github.com/teilomillet/nbassist/webhook"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Router handles HTTP routing
type Router struct {
	router chi.Router
}

// NewRouter mounts the relay routes. A nil m disables /metrics.
func NewRouter(processor *processing.Processor, m *metrics.Metrics, metricsPath string, logger *zap.Logger) *Router {
	r := chi.NewRouter()

	// Add our middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	if m != nil {
		r.Use(middleware.PrometheusMetrics(m))
	}
	r.Use(middleware.RequestTimer)
	r.Use(middleware.CORS)

	generate := handlers.NewGenerateHandler(processor, logger)

	// Mount routes
	r.Get("/", handlers.HealthHandler)
	r.Method(http.MethodPost, "/generate", generate)
	r.Method(http.MethodPost, "/api/generate", generate)
	if m != nil {
		r.Method(http.MethodGet, metricsPath, m.Handler())
	}

	return &Router{router: r}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:           cfg.Addr(),
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// New builds the complete relay from cfg: one shared HTTP client for both
// upstreams, the metrics registry and, when enabled, the circuit breaker.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	httpClient := &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics()
	}

	llm := gemini.NewClient(cfg.Gemini, httpClient)
	notifier := webhook.NewClient(cfg.Webhook, httpClient)
	if !notifier.Enabled() {
		logger.Info("Webhook notifications disabled")
	}

	opts := []processing.Option{processing.WithMetrics(m)}
	if cfg.CircuitBreaker.Enabled {
		var registry prometheus.Registerer
		if m != nil {
			registry = m.Registry()
		}
		cb, err := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
			Name:             "gemini",
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			IsFailure:        processing.IsUpstreamFailure,
		}, logger, registry)
		if err != nil {
			return nil, fmt.Errorf("create circuit breaker: %w", err)
		}
		opts = append(opts, processing.WithCircuitBreaker(cb))
	}

	processor, err := processing.NewProcessor(llm, notifier, logger, opts...)
	if err != nil {
		return nil, err
	}

	router := NewRouter(processor, m, cfg.Metrics.Path, logger)
	return NewServer(cfg.Server, router, logger), nil
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then drains in-flight
// requests for at most the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Server started", zap.String("address", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down server")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
