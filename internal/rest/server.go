// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sessionsign.
//
// go-sessionsign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeremyhahn/go-sessionsign/pkg/correlation"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/metrics"
	"github.com/jeremyhahn/go-sessionsign/pkg/ratelimit"
)

// Server represents the REST API server.
type Server struct {
	server   *http.Server
	handlers *HandlerContext
	logger   *logging.Logger
	config   *Config
}

// Config holds the REST server configuration.
type Config struct {
	// Address is the host:port to listen on (default: ":8443")
	Address string

	// Signer serves the signing operations
	Signer Signer

	// Limiter rate limits token issuance per username (optional)
	Limiter *ratelimit.Limiter

	// SessionLength is used when a token request does not name one
	SessionLength time.Duration

	// Version is the API version string
	Version string

	// HealthChecker backs the /health/* probes (optional)
	HealthChecker HealthChecker

	// MetricsPath and MetricsHandler mount a metrics endpoint when both are set
	MetricsPath    string
	MetricsHandler http.Handler

	// Logger defaults to logging.DefaultLogger()
	Logger *logging.Logger

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}

	c := *cfg
	if c.Address == "" {
		c.Address = ":8443"
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logging.DefaultLogger()
	}

	handlers := NewHandlerContext(c.Signer, c.Limiter, c.SessionLength, c.Version, c.Logger)
	handlers.SetHealthChecker(c.HealthChecker)

	s := &Server{
		handlers: handlers,
		logger:   c.Logger,
		config:   &c,
	}

	s.server = &http.Server{
		Addr:              c.Address,
		Handler:           s.setupRouter(),
		ReadTimeout:       c.ReadTimeout,
		ReadHeaderTimeout: c.ReadTimeout,
		WriteTimeout:      c.WriteTimeout,
		IdleTimeout:       c.IdleTimeout,
	}

	return s, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(correlation.Middleware)
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)

	r.Get("/health", s.handlers.HealthHandler)
	r.Head("/health", s.handlers.HealthHandler)
	r.Get("/health/live", s.handlers.LivenessHandler)
	r.Get("/health/ready", s.handlers.ReadinessHandler)
	r.Get("/health/startup", s.handlers.StartupHandler)

	if s.config.MetricsPath != "" && s.config.MetricsHandler != nil {
		r.Handle(s.config.MetricsPath, s.config.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/method", s.handlers.GetMethodHandler)
		r.Put("/method", s.handlers.SetMethodHandler)
		r.Post("/tokens", s.handlers.TokenHandler)
		r.Post("/sign", s.handlers.SignHandler)
		r.Post("/verify", s.handlers.VerifyHandler)
	})

	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address and serves until Stop is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}
	return s.Serve(ln)
}

// Serve serves requests on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server", "address", ln.Addr().String())

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Errorf("Failed to shutdown server: %v", err)
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// SetHealthChecker sets the health checker for the server.
func (s *Server) SetHealthChecker(checker HealthChecker) {
	s.handlers.SetHealthChecker(checker)
}
