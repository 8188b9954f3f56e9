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
	"github.com/spf13/cobra"
)

func newMethodCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "method",
		Short: "Show the configured signing method and its sizing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := cfg.Runtime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			methods := rt.Selector.Methods()
			names := make([]string, len(methods))
			for i, m := range methods {
				names[i] = m.String()
			}

			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())
			return printer.PrintMethod(
				rt.Selector.Method().String(),
				names,
				rt.Selector.TokenLength(),
				rt.Selector.SigLength(),
			)
		},
	}
}
