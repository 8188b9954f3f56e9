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
	"github.com/jeremyhahn/go-sessionsign/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST service",
		Long: `Run the REST service until SIGINT or SIGTERM. SIGHUP reloads the
logging and signing method settings from --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.Load(cmd)
			if err != nil {
				return err
			}

			srv, err := server.New(c, server.WithFs(cfg.fs))
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context(), cfg.ConfigFile)
		},
	}
}
