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
	"fmt"
	"time"

	"github.com/jeremyhahn/go-sessionsign/internal/password"
	"github.com/jeremyhahn/go-sessionsign/pkg/encoding"
	"github.com/spf13/cobra"
)

func newTokenCmd(cfg *Config) *cobra.Command {
	var sessionLength time.Duration

	cmd := &cobra.Command{
		Use:   "token <username> [secret]",
		Short: "Issue a session token",
		Long: `Issue a new session token for username and print it base64 encoded.

The secret is required when the configuration authenticates callers
against the credential store. The session length is advisory.

Example:
  sessionsign --method pki token jsmith s3cret > token.b64`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cfg.Runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			var secretArg string
			if len(args) == 2 {
				secretArg = args[1]
			}
			secret := password.Optional(secretArg)
			if secret != nil {
				defer secret.Clear()
			}

			length := rt.Config.Signing.SessionLength
			if cmd.Flags().Changed("session-length") {
				length = sessionLength
			}

			token, err := rt.Selector.GenerateSessionToken(args[0], secret, length)
			if err != nil {
				return err
			}

			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())
			return printer.PrintToken(args[0], rt.Selector.Method().String(), encoding.EncodeText(token))
		},
	}

	cmd.Flags().DurationVar(&sessionLength, "session-length", 0, "advisory session length (default from config)")
	return cmd
}

func newSignCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sign <username> <token>",
		Short: "Sign standard input with a session token",
		Long: `Sign the message read from standard input with a base64 session token
and print the base64 signature.

Example:
  echo -n "hello, world!" | sessionsign --method pki sign jsmith "$(cat token.b64)"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cfg.Runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			token, err := encoding.DecodeText(args[1], rt.Selector.TokenLength())
			if err != nil {
				return fmt.Errorf("token: %w", err)
			}
			msg, err := readInput(cmd)
			if err != nil {
				return err
			}

			sig, err := rt.Selector.Sign(msg, args[0], token)
			if err != nil {
				return err
			}

			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())
			return printer.PrintSignature(encoding.EncodeText(sig))
		},
	}
}

func newVerifyCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <username> <signature>",
		Short: "Verify a signature over standard input",
		Long: `Verify a base64 signature over the message read from standard input.
The exit status is 0 when the signature verifies and 1 otherwise.

Example:
  echo -n "hello, world!" | sessionsign --method pki verify jsmith "$SIG"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cfg.Runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			sig, err := encoding.DecodeText(args[1], 0)
			if err != nil {
				return fmt.Errorf("signature: %w", err)
			}
			msg, err := readInput(cmd)
			if err != nil {
				return err
			}

			ok, err := rt.Selector.Verify(msg, args[0], sig)
			if err != nil {
				return err
			}

			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())
			if err := printer.PrintVerification(ok); err != nil {
				return err
			}
			if !ok {
				return ErrVerificationFailed
			}
			return nil
		},
	}
}
