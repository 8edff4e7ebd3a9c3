// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the aperture command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aperturehq/aperture/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "aperture",
	DisableAutoGenTag: true,
	Short:             "Aperture is a multi-tenant gateway for long-lived AI coding agent sessions",
	Long: `Aperture is a multi-tenant gateway that fronts long-lived AI coding agent
sessions. It multiplexes WebSocket and SSE clients onto per-session runtimes,
persists transcripts in SQLite so sessions survive restarts, brokers isolated
git worktrees per session, and keeps provider credentials encrypted at rest.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Re-initialize so the --debug flag is picked up.
		logger.Initialize()
	},
}

// NewRootCmd creates a new root command for the aperture CLI.
func NewRootCmd() *cobra.Command {
	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
