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

package cli

import (
	"github.com/jeremyhahn/go-sessionsign/internal/config"
	"github.com/jeremyhahn/go-sessionsign/internal/server"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// Method overrides the configured signing method (none, pki)
	Method string

	// KeyDir overrides the configured key store root
	KeyDir string

	// LogLevel overrides the configured log level
	LogLevel string

	// OutputFormat controls output formatting (text, json)
	OutputFormat string

	// Verbose enables debug logging
	Verbose bool

	// fs holds keys and credentials. Tests replace it with a memory filesystem.
	fs afero.Fs
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: "text",
		fs:           afero.NewOsFs(),
	}
}

// Load reads the configuration file and applies the command line
// overrides that were set on cmd.
func (c *Config) Load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(c.ConfigFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("method") {
		cfg.Signing.Method = c.Method
	}
	if flags.Changed("key-dir") {
		cfg.PKI.KeyDir = c.KeyDir
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = c.LogLevel
	}
	if c.Verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Runtime loads the configuration and assembles the signing runtime. The
// caller closes it.
func (c *Config) Runtime(cmd *cobra.Command) (*server.Runtime, error) {
	cfg, err := c.Load(cmd)
	if err != nil {
		return nil, err
	}
	logger := server.NewLogger(cfg.Logging)
	printVerbose(c, cmd, "Using method %s, key store %s", cfg.Signing.Method, cfg.PKI.KeyDir)
	return server.NewRuntime(cfg, c.fs, logger)
}
