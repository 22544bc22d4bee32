package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyblock/hyblock-contracts/internal/devnet"
	"github.com/hyblock/hyblock-contracts/pkg/healthprobe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server provides the devnet HTTP API plus metrics and health endpoints.
type Server struct {
	server        *http.Server
	router        chi.Router
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	events        *EventStreamHandler
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker

	// Devnet enables the /api and /ws routes when set.
	Devnet *devnet.Devnet
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	s := &Server{
		router:        r,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}

	if cfg.Devnet != nil {
		api := NewDevnetHandler(cfg.Devnet, cfg.Logger)
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			api.Routes(r)
		})

		// No request timeout: the stream is long-lived.
		s.events = NewEventStreamHandler(cfg.Devnet.Bets(), cfg.Logger)
		r.Get("/ws/events", s.events.ServeHTTP)
	}

	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server and closes open event streams.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	if s.events != nil {
		s.events.CloseAll()
	}

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
