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

// Package server assembles the signing runtime from configuration and runs
// the REST service around it.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/jeremyhahn/go-sessionsign/internal/config"
	"github.com/jeremyhahn/go-sessionsign/internal/rest"
	"github.com/jeremyhahn/go-sessionsign/pkg/health"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/metrics"
	"github.com/jeremyhahn/go-sessionsign/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
)

// Server runs the REST surface over a Runtime.
type Server struct {
	config  *config.Config
	mu      sync.RWMutex
	runtime *Runtime
	logger  *logging.Logger

	restServer       *rest.Server
	limiter          *ratelimit.Limiter
	healthChecker    *health.Checker
	metricsCollector *metrics.ResourceCollector

	// Lifecycle
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	serveErr chan error
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	fs     afero.Fs
	logger *logging.Logger
}

// WithFs sets the filesystem holding keys and credentials.
func WithFs(fs afero.Fs) Option {
	return func(o *serverOptions) { o.fs = fs }
}

// WithLogger overrides the logger built from the configuration.
func WithLogger(logger *logging.Logger) Option {
	return func(o *serverOptions) { o.logger = logger }
}

// New creates a server from cfg. Nothing listens until Start.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	rt, err := NewRuntime(cfg, o.fs, o.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize runtime: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   cfg,
		runtime:  rt,
		logger:   rt.Logger,
		ctx:      ctx,
		cancel:   cancel,
		serveErr: make(chan error, 1),
	}

	s.limiter = ratelimit.New(&ratelimit.Config{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMin,
		Burst:             cfg.RateLimit.Burst,
	})

	s.initializeHealth()

	restConfig := &rest.Config{
		Address:       cfg.Address(),
		Signer:        rt.Selector,
		Limiter:       s.limiter,
		SessionLength: cfg.Signing.SessionLength,
		Version:       getBuildVersion(),
		HealthChecker: s.healthChecker,
		Logger:        s.logger.With("component", "rest"),
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
	}
	if cfg.Metrics.Enabled {
		restConfig.MetricsPath = cfg.Metrics.Path
		restConfig.MetricsHandler = promhttp.Handler()
	}

	s.restServer, err = rest.NewServer(restConfig)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to create REST server: %w", err)
	}

	return s, nil
}

// getBuildVersion retrieves the version from build information
func getBuildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.version" && setting.Value != "" && setting.Value != "devel" {
			return setting.Value
		}
		if setting.Key == "vcs.revision" {
			if len(setting.Value) >= 7 {
				return setting.Value[:7]
			}
			return setting.Value
		}
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// initializeHealth registers the readiness checks.
func (s *Server) initializeHealth() {
	s.healthChecker = health.NewChecker()
	s.healthChecker.RegisterCheck("method", health.MethodCheck(s.runtime.Selector))
	s.healthChecker.RegisterCheck("keystore", health.KeyStoreCheck(s.runtime.Fs, s.config.PKI.KeyDir))
	s.logger.Debug("Health checker initialized", "checks", len(s.healthChecker.Names()))
}

// initializeMetrics enables collection and starts the resource collector.
func (s *Server) initializeMetrics() {
	metrics.Enable()
	s.metricsCollector = metrics.StartResourceCollector(s.ctx, 30*time.Second)
	s.logger.Info("Metrics initialized", "path", s.config.Metrics.Path)
}

// Start starts the REST server in the background.
func (s *Server) Start() error {
	s.logger.Info("Starting sessionsign server...",
		"method", s.runtime.Selector.Method().String(),
		"address", s.config.Address())

	if s.config.Metrics.Enabled {
		s.initializeMetrics()
	} else {
		metrics.Disable()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.restServer.Start(); err != nil {
			s.logger.Errorf("REST server error: %v", err)
			s.serveErr <- err
		}
	}()

	s.healthChecker.MarkStarted()
	return nil
}

// Run starts the server and blocks until ctx is done, a termination signal
// arrives or the listener fails. SIGHUP reloads the configuration file at
// configPath when one is given.
func (s *Server) Run(ctx context.Context, configPath string) error {
	if err := s.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-s.serveErr:
			runErr = err
			break loop
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				s.reloadFrom(configPath)
				continue
			}
			s.logger.Info("Received signal, shutting down", "signal", sig.String())
			break loop
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (s *Server) reloadFrom(configPath string) {
	if configPath == "" {
		s.logger.Warn("SIGHUP ignored: no configuration file")
		return
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		s.logger.Errorf("Failed to load configuration for reload: %v", err)
		return
	}
	if err := s.Reload(cfg); err != nil {
		s.logger.Errorf("Reload failed: %v", err)
	}
}

// Stop gracefully stops the REST server and releases the runtime.
func (s *Server) Stop(ctx context.Context) error {
	s.healthChecker.MarkNotStarted()

	err := s.restServer.Stop(ctx)
	s.wg.Wait()
	s.close()

	s.logger.Info("Server stopped")
	return err
}

func (s *Server) close() {
	s.cancel()
	if s.metricsCollector != nil {
		s.metricsCollector.Stop()
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if err := s.runtime.Close(); err != nil {
		s.logger.Warnf("Failed to close runtime: %v", err)
	}
}

// Runtime returns the signing runtime.
func (s *Server) Runtime() *Runtime {
	return s.runtime
}

// HealthChecker returns the server's health checker.
func (s *Server) HealthChecker() *health.Checker {
	return s.healthChecker
}

// RESTServer returns the REST server.
func (s *Server) RESTServer() *rest.Server {
	return s.restServer
}
