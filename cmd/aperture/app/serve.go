// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/agent/claude"
	"github.com/aperturehq/aperture/pkg/agent/pi"
	"github.com/aperturehq/aperture/pkg/api"
	"github.com/aperturehq/aperture/pkg/config"
	"github.com/aperturehq/aperture/pkg/logger"
	"github.com/aperturehq/aperture/pkg/session"
	"github.com/aperturehq/aperture/pkg/store/sqlite"
	"github.com/aperturehq/aperture/pkg/telemetry"
	"github.com/aperturehq/aperture/pkg/vault"
	"github.com/aperturehq/aperture/pkg/worktree"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the aperture gateway",
	Long: `Start the aperture gateway HTTP server.
The server is configured from the environment (APERTURE_API_TOKEN is required)
and exposes the session, workspace and credential APIs plus the WebSocket and
SSE session channels.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "Address to bind the HTTP listener to (overrides HOST)")
	serveCmd.Flags().Int("port", 0, "Port to bind the HTTP listener to (overrides PORT)")

	if err := viper.BindPFlag("host", serveCmd.Flags().Lookup("host")); err != nil {
		logger.Fatalf("Failed to bind host flag: %v", err)
	}
	if err := viper.BindPFlag("port", serveCmd.Flags().Lookup("port")); err != nil {
		logger.Fatalf("Failed to bind port flag: %v", err)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = viper.GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = viper.GetInt("port")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Provider secrets in the gateway environment are never forwarded to
	// sessions; point at them loudly so nobody relies on that.
	if keys := agent.AmbientProviderKeys(os.Environ()); len(keys) > 0 {
		logger.Warnf("provider API keys in the gateway environment are not forwarded to sessions: %s",
			strings.Join(keys, ", "))
	}

	var credVault *vault.Vault
	if cfg.VaultEnabled() {
		credVault, err = vault.New(cfg.CredentialsStorePath, vault.DeriveKey(cfg.CredentialsMasterKey))
		if err != nil {
			return fmt.Errorf("failed to open credential vault: %w", err)
		}
		logger.Infof("credential vault open at %s", cfg.CredentialsStorePath)
	} else {
		logger.Info("credential vault disabled; set CREDENTIALS_MASTER_KEY to enable stored credentials")
	}

	st, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	// Close is idempotent; this covers the error returns between here and
	// the ordered shutdown sequence at the bottom.
	defer func() { _ = st.Close() }()
	logger.Infof("session store open at %s", cfg.DatabasePath)

	registry := agent.NewRegistry()
	registry.Register(claude.New(cfg.ClaudeBinaryPath))
	registry.Register(pi.New(cfg.PiBinaryPath))
	probeBackends(ctx, registry)

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// The native worktree helper binding ships separately; without it
	// repository validation still works and workspace-backed sessions are
	// rejected up front.
	broker := worktree.NewBroker(nil)

	manager := session.NewManager(session.ManagerOptions{
		Config:   cfg,
		Store:    st,
		Vault:    credVault,
		Registry: registry,
		Broker:   broker,
		Metrics:  metrics,
	})

	// Demote sessions a previous process left marked live before accepting
	// traffic, so clients see them as resumable rather than stuck.
	if err := manager.RecoverStartup(ctx); err != nil {
		return fmt.Errorf("startup recovery failed: %w", err)
	}

	serveErr := api.Serve(ctx, api.Deps{
		Config:   cfg,
		Manager:  manager,
		Store:    st,
		Registry: registry,
		Broker:   broker,
		Vault:    credVault,
		Metrics:  metrics,
	})

	// The listener has stopped accepting; end live sessions under the
	// shutdown deadline, then release the store.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := manager.TerminateAll(shutdownCtx); err != nil {
		logger.Errorf("failed to terminate sessions during shutdown: %v", err)
	}
	if err := st.Close(); err != nil {
		logger.Errorf("failed to close session store: %v", err)
	}

	if serveErr != nil {
		return serveErr
	}
	logger.Info("gateway shutdown complete")
	return nil
}

// probeBackends logs the installation state of every registered backend.
// A missing binary is not fatal at boot; sessions for that backend fail at
// creation and /readyz reports the detail.
func probeBackends(ctx context.Context, registry *agent.Registry) {
	for _, kind := range registry.Kinds() {
		backend, err := registry.Get(kind)
		if err != nil {
			continue
		}
		readiness := backend.EnsureInstalled(ctx)
		if readiness.Ready {
			logger.Infow("agent backend ready",
				"agent", string(kind),
				"binary", readiness.BinaryPath,
				"version", readiness.Version,
			)
			continue
		}
		logger.Warnw("agent backend unavailable",
			"agent", string(kind),
			"error", readiness.Error,
		)
	}
}
