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
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-sessionsign/internal/config"
	"github.com/jeremyhahn/go-sessionsign/internal/password"
	"github.com/jeremyhahn/go-sessionsign/pkg/auth"
	"github.com/jeremyhahn/go-sessionsign/pkg/backend/pki"
	"github.com/jeremyhahn/go-sessionsign/pkg/digest"
	"github.com/jeremyhahn/go-sessionsign/pkg/logging"
	"github.com/jeremyhahn/go-sessionsign/pkg/method"
	"github.com/jeremyhahn/go-sessionsign/pkg/storage/file"
	"github.com/spf13/afero"
)

// Runtime bundles the signing components assembled from a configuration.
// The CLI uses it directly; Server wraps it with the HTTP surface.
type Runtime struct {
	Config      *config.Config
	Fs          afero.Fs
	Logger      *logging.Logger
	Selector    *method.Selector
	Credentials *auth.CredentialStore
}

// NewRuntime builds the selector described by cfg and activates the
// configured method. A nil fs uses the OS filesystem and a nil logger is
// built from cfg.Logging.
func NewRuntime(cfg *config.Config, fs afero.Fs, logger *logging.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = NewLogger(cfg.Logging)
	}

	rt := &Runtime{
		Config: cfg,
		Fs:     fs,
		Logger: logger,
	}

	authenticator := auth.AllowAll
	if cfg.Auth.Mode == config.AuthModeCredentials {
		creds, err := OpenCredentials(cfg, fs)
		if err != nil {
			return nil, err
		}
		rt.Credentials = creds
		authenticator = creds
	}

	pkiConfig, err := PKIConfig(cfg, fs, logger, authenticator)
	if err != nil {
		rt.Close()
		return nil, err
	}

	selector, err := method.NewDefaultSelector(logger, pkiConfig)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to create method selector: %w", err)
	}
	rt.Selector = selector

	if m := cfg.Method(); m != selector.Method() {
		if err := selector.SetMethod(m); err != nil {
			rt.Close()
			return nil, err
		}
	}

	logger.Debug("runtime initialized",
		"method", selector.Method().String(),
		"auth", cfg.Auth.Mode,
		"key_dir", cfg.PKI.KeyDir)

	return rt, nil
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg config.LoggingConfig) *logging.Logger {
	return logging.New(&logging.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
	})
}

// PKIConfig translates the pki section of cfg into a backend configuration.
func PKIConfig(cfg *config.Config, fs afero.Fs, logger *logging.Logger, authenticator auth.Authenticator) (*pki.Config, error) {
	hash, err := digest.Parse(cfg.PKI.Hash)
	if err != nil {
		return nil, err
	}
	return &pki.Config{
		RootDir:       cfg.PKI.KeyDir,
		KeyBits:       cfg.PKI.KeyBits,
		Hash:          hash,
		Fs:            fs,
		Passphrase:    password.Optional(cfg.PKI.Passphrase),
		Authenticator: authenticator,
		Logger:        logger,
	}, nil
}

// OpenCredentials opens the credential store in cfg.Auth.CredentialsDir.
func OpenCredentials(cfg *config.Config, fs afero.Fs) (*auth.CredentialStore, error) {
	if cfg.Auth.CredentialsDir == "" {
		return nil, fmt.Errorf("auth credentials_dir is not configured")
	}
	backend, err := file.New(fs, cfg.Auth.CredentialsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential storage: %w", err)
	}
	return auth.NewCredentialStore(backend)
}

// Close releases the selector's active backend and the credential store.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Selector != nil {
		errs = append(errs, rt.Selector.Close())
	}
	if rt.Credentials != nil {
		errs = append(errs, rt.Credentials.Close())
	}
	return errors.Join(errs...)
}
