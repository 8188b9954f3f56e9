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

	"github.com/jeremyhahn/go-sessionsign/internal/password"
	"github.com/jeremyhahn/go-sessionsign/internal/server"
	"github.com/jeremyhahn/go-sessionsign/pkg/auth"
	"github.com/spf13/cobra"
)

func newUserCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage caller credentials",
		Long: `Commands for managing the credentials checked before a session token
is issued. They operate on auth.credentials_dir and take effect when
auth.mode is "credentials".`,
	}

	cmd.AddCommand(newUserSetCmd(cfg), newUserDeleteCmd(cfg), newUserListCmd(cfg))
	return cmd
}

// openCredentials opens the configured credential store. The caller closes it.
func openCredentials(cfg *Config, cmd *cobra.Command) (*auth.CredentialStore, error) {
	c, err := cfg.Load(cmd)
	if err != nil {
		return nil, err
	}
	printVerbose(cfg, cmd, "Using credential store at: %s", c.Auth.CredentialsDir)
	return server.OpenCredentials(c, cfg.fs)
}

func newUserSetCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set <username> [secret]",
		Short: "Create or replace a user's secret",
		Long: `Create or replace the secret of username. When the secret argument is
omitted the first line of standard input is used.

Example:
  echo s3cret | sessionsign user set jsmith`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw string
			if len(args) == 2 {
				raw = args[1]
			} else {
				line, err := readLine(cmd)
				if err != nil {
					return err
				}
				raw = line
			}

			secret, err := password.NewClearPasswordFromString(raw)
			if err != nil {
				return fmt.Errorf("secret: %w", err)
			}
			defer secret.Clear()

			store, err := openCredentials(cfg, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetSecret(args[0], secret); err != nil {
				return err
			}

			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())
			return printer.PrintSuccess(fmt.Sprintf("Secret set for %s", args[0]))
		},
	}
}

func newUserDeleteCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user's credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCredentials(cfg, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(args[0]); err != nil {
				return err
			}

			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())
			return printer.PrintSuccess(fmt.Sprintf("Deleted %s", args[0]))
		},
	}
}

func newUserListCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users with stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCredentials(cfg, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			users, err := store.Users()
			if err != nil {
				return err
			}

			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())
			return printer.PrintUsers(users)
		},
	}
}
