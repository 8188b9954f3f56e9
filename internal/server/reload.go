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

package server

import (
	"fmt"

	"github.com/jeremyhahn/go-sessionsign/internal/config"
)

// Reload applies the parts of cfg that can change without a restart: the
// logging level and the active signing method. Log format, listener, key
// store and authentication changes require a restart.
func (s *Server) Reload(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Reloading server configuration...")

	s.reloadLogging(cfg)

	if err := s.reloadMethod(cfg); err != nil {
		return fmt.Errorf("failed to reload signing method: %w", err)
	}

	s.config = cfg
	s.logger.Info("Server configuration reloaded successfully")
	return nil
}

// reloadLogging changes the level in place. The REST server, the selector
// and the backends hold children of the same logger and follow along.
func (s *Server) reloadLogging(cfg *config.Config) {
	if cfg.Logging.Format != s.config.Logging.Format {
		s.logger.Warn("Log format change requires a restart",
			"current", s.config.Logging.Format,
			"requested", cfg.Logging.Format)
	}
	if cfg.Logging.Level == s.config.Logging.Level {
		return
	}

	s.logger.Info("Updating log level",
		"old_level", s.config.Logging.Level,
		"new_level", cfg.Logging.Level)

	s.logger.SetLevel(cfg.Logging.Level)
}

// reloadMethod switches the selector when the configured method changed.
func (s *Server) reloadMethod(cfg *config.Config) error {
	m := cfg.Method()
	if m == s.runtime.Selector.Method() {
		return nil
	}
	if err := s.runtime.Selector.SetMethod(m); err != nil {
		return err
	}
	s.logger.Info("Signing method changed by reload", "method", m.String())
	return nil
}
