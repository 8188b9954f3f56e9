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

// Package config loads the sessionsign YAML configuration, applies
// SESSIONSIGN_* environment overrides and validates the result.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jeremyhahn/go-sessionsign/pkg/backend/pki"
	"github.com/jeremyhahn/go-sessionsign/pkg/digest"
	"github.com/jeremyhahn/go-sessionsign/pkg/types"
	"gopkg.in/yaml.v3"
)

// Auth modes
const (
	AuthModeAllowAll    = "allow_all"
	AuthModeCredentials = "credentials"
)

// Config represents the complete configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Signing   SigningConfig   `yaml:"signing"`
	PKI       PKIConfig       `yaml:"pki"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig contains REST listener settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SigningConfig selects the active signing method
type SigningConfig struct {
	Method        string        `yaml:"method"`
	SessionLength time.Duration `yaml:"session_length"`
}

// PKIConfig contains PKI backend settings
type PKIConfig struct {
	KeyDir     string `yaml:"key_dir"`
	KeyBits    int    `yaml:"key_bits"`
	Hash       string `yaml:"hash"`
	Passphrase string `yaml:"passphrase,omitempty"`
}

// AuthConfig controls how token requests are authenticated
type AuthConfig struct {
	Mode           string `yaml:"mode"`
	CredentialsDir string `yaml:"credentials_dir"`
}

// RateLimitConfig controls per-user token issuance limits
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min"`
	Burst          int  `yaml:"burst"`
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8443,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Signing: SigningConfig{
			Method:        types.MethodNone.String(),
			SessionLength: 24 * time.Hour,
		},
		PKI: PKIConfig{
			KeyDir:  pki.DefaultRootDir,
			KeyBits: pki.DefaultKeyBits,
			Hash:    "sha256",
		},
		Auth: AuthConfig{
			Mode: AuthModeAllowAll,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 60,
			Burst:          10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads configuration from a YAML file over the defaults and applies
// environment variable overrides. An empty path yields the defaults with
// overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - Config file path is provided by admin/user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("SESSIONSIGN_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if p := os.Getenv("SESSIONSIGN_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			log.Printf("Warning: invalid SESSIONSIGN_PORT value %q, using %d", p, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}
	if level := os.Getenv("SESSIONSIGN_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("SESSIONSIGN_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if m := os.Getenv("SESSIONSIGN_METHOD"); m != "" {
		cfg.Signing.Method = m
	}
	if dir := os.Getenv("SESSIONSIGN_KEY_DIR"); dir != "" {
		cfg.PKI.KeyDir = dir
	}
	if pass := os.Getenv("SESSIONSIGN_KEY_PASSPHRASE"); pass != "" {
		cfg.PKI.Passphrase = pass
	}
	if mode := os.Getenv("SESSIONSIGN_AUTH_MODE"); mode != "" {
		cfg.Auth.Mode = mode
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if _, err := types.ParseMethod(c.Signing.Method); err != nil {
		return err
	}
	if c.Signing.SessionLength < 0 {
		return fmt.Errorf("session_length cannot be negative")
	}

	if c.PKI.KeyDir == "" {
		return fmt.Errorf("pki key_dir must be specified")
	}
	if _, err := pki.TokenCapacity(c.PKI.KeyBits); err != nil {
		return err
	}
	if _, err := digest.Parse(c.PKI.Hash); err != nil {
		return err
	}

	switch c.Auth.Mode {
	case AuthModeAllowAll:
	case AuthModeCredentials:
		if c.Auth.CredentialsDir == "" {
			return fmt.Errorf("auth credentials_dir is required in %s mode", AuthModeCredentials)
		}
	default:
		return fmt.Errorf("invalid auth mode: %q (must be %s or %s)", c.Auth.Mode, AuthModeAllowAll, AuthModeCredentials)
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMin < 1 {
		return fmt.Errorf("ratelimit requests_per_min must be positive when enabled")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /: %q", c.Metrics.Path)
	}

	return nil
}

// Method returns the parsed signing method. Call Validate first.
func (c *Config) Method() types.Method {
	m, _ := types.ParseMethod(c.Signing.Method)
	return m
}

// Address returns host:port for the REST listener.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
