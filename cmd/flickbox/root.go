// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flickbox Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Flickbox CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flickbox",
		Short: "Flickbox - account registration and sign-in for the video catalog",
		Long: `Flickbox serves account registration, sign-in and a health probe
over HTTP, backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/flickbox/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHealthcheckCmd())

	return cmd
}
