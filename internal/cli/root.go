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

// Package cli implements the sessionsign command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// ErrVerificationFailed is returned by the verify command when the
// signature does not verify.
var ErrVerificationFailed = errors.New("signature verification failed")

// NewRootCommand builds the sessionsign command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(NewConfig())
}

func newRootCommand(cfg *Config) *cobra.Command {
	if cfg.fs == nil {
		cfg.fs = afero.NewOsFs()
	}

	rootCmd := &cobra.Command{
		Use:   "sessionsign",
		Short: "Session token signing and verification",
		Long: `sessionsign issues per-user session tokens, signs messages with them
and verifies the signatures.

Signing methods:
  - none: fixed sentinel tokens and signatures
  - pki:  a fresh RSA key pair per session, kept in the key store`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "",
		"config file (defaults and SESSIONSIGN_* environment when empty)")
	flags.StringVar(&cfg.Method, "method", "",
		"signing method (none, pki)")
	flags.StringVar(&cfg.KeyDir, "key-dir", "",
		"key store root directory")
	flags.StringVar(&cfg.LogLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	flags.StringVarP(&cfg.OutputFormat, "output", "o", "text",
		"output format (text, json)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false,
		"verbose output")

	rootCmd.AddCommand(
		newTokenCmd(cfg),
		newSignCmd(cfg),
		newVerifyCmd(cfg),
		newPurgeCmd(cfg),
		newUserCmd(cfg),
		newMethodCmd(cfg),
		newServeCmd(cfg),
		newVersionCmd(cfg),
	)

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cfg := NewConfig()
	rootCmd := newRootCommand(cfg)
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrVerificationFailed) {
			printer := NewPrinter(cfg.OutputFormat, os.Stderr)
			_ = printer.PrintError(err) // best-effort
		}
		return 1
	}
	return 0
}

// printVerbose prints a message if verbose mode is enabled
func printVerbose(cfg *Config, cmd *cobra.Command, format string, args ...interface{}) {
	if cfg.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "[VERBOSE] "+format+"\n", args...)
	}
}

// readInput reads the whole of the command's standard input.
func readInput(cmd *cobra.Command) ([]byte, error) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read standard input: %w", err)
	}
	return data, nil
}

// readLine reads a single line from the command's standard input.
func readLine(cmd *cobra.Command) (string, error) {
	data, err := readInput(cmd)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimRight(line, "\r"), nil
}
