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
	"time"

	"github.com/spf13/cobra"
)

func newPurgeCmd(cfg *Config) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge <username>",
		Short: "Remove stored key pairs older than a duration",
		Long: `Remove the stored key pairs of username that are older than --older-than.
Signatures made with a removed key no longer verify. Methods that keep
no key material remove nothing.

Example:
  sessionsign --method pki purge jsmith --older-than 72h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cfg.Runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			removed, err := rt.Selector.Purge(args[0], olderThan)
			if err != nil {
				return err
			}

			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())
			return printer.PrintPurged(args[0], removed)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "minimum age of the key pairs to remove")
	return cmd
}
