// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides the gateway configuration model.
//
// Configuration is loaded once at boot from the process environment and
// passed explicitly to every component; there is no ambient mutable state.
// Malformed numeric or boolean values fall back to their defaults with a
// warning, while a missing API token is a hard validation failure.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/adrg/xdg"

	"github.com/aperturehq/aperture/pkg/logger"
)

// Default values for operational configuration.
const (
	// DefaultPort is the TCP port the HTTP listener binds to.
	DefaultPort = 8080

	// DefaultHost is the address the HTTP listener binds to.
	DefaultHost = "0.0.0.0"

	// DefaultMaxConcurrentSessions caps the number of live sessions.
	DefaultMaxConcurrentSessions = 50

	// DefaultSessionIdleTimeout ends sessions with no activity.
	DefaultSessionIdleTimeout = 600000 * time.Millisecond

	// DefaultMaxMessageSizeBytes bounds a single inbound frame.
	DefaultMaxMessageSizeBytes = 262144

	// DefaultRPCRequestTimeout bounds runtime operations that await the backend.
	DefaultRPCRequestTimeout = 300000 * time.Millisecond

	// DefaultRateLimitMax is the number of requests allowed per window.
	DefaultRateLimitMax = 100

	// DefaultRateLimitWindow is the rate limit accounting window.
	DefaultRateLimitWindow = 60000 * time.Millisecond

	// DefaultShutdownTimeout bounds the graceful shutdown fan-out.
	DefaultShutdownTimeout = 10000 * time.Millisecond

	// minMasterKeyLen is the minimum length of the credentials master key.
	// Shorter keys disable the vault rather than weaken it.
	minMasterKeyLen = 32
)

// Config holds the full gateway configuration. It is immutable after load.
type Config struct {
	// APIToken is the bearer token that gates every non-health endpoint.
	APIToken string

	// Host and Port are the HTTP listener bind address.
	Host string
	Port int

	// LogLevel is the minimum level emitted by the logger (debug|info|warn|error).
	LogLevel string

	// MaxConcurrentSessions is the session admission cap.
	MaxConcurrentSessions int

	// SessionIdleTimeout ends a session that has seen no activity.
	SessionIdleTimeout time.Duration

	// MaxMessageSizeBytes bounds a single inbound frame, measured pre-parse.
	MaxMessageSizeBytes int64

	// RPCRequestTimeout bounds any runtime operation that awaits backend completion.
	RPCRequestTimeout time.Duration

	// RateLimitMax requests are admitted per RateLimitWindow per remote.
	RateLimitMax    int
	RateLimitWindow time.Duration

	// HostedMode restricts interactive/OAuth login flows (no human present).
	HostedMode bool

	// AllowInteractiveAuth permits backends to open interactive login flows.
	AllowInteractiveAuth bool

	// CredentialsMasterKey enables the at-rest credential vault when it is at
	// least 32 characters long. Empty or short keys leave the vault disabled.
	CredentialsMasterKey string

	// CredentialsStorePath is the path of the encrypted credential file.
	CredentialsStorePath string

	// DatabasePath is the path of the SQLite session store.
	DatabasePath string

	// ClaudeBinaryPath and PiBinaryPath override PATH lookup of the agent runners.
	ClaudeBinaryPath string
	PiBinaryPath     string

	// ShutdownTimeout bounds the graceful shutdown fan-out.
	ShutdownTimeout time.Duration
}

// LoadFromEnv builds a Config from the process environment.
func LoadFromEnv() (*Config, error) {
	return loadWithGetenv(os.Getenv)
}

// loadWithGetenv is the injectable core of LoadFromEnv.
func loadWithGetenv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		APIToken:              getenv("APERTURE_API_TOKEN"),
		Host:                  stringOr(getenv("HOST"), DefaultHost),
		Port:                  intOr(getenv, "PORT", DefaultPort),
		LogLevel:              stringOr(getenv("LOG_LEVEL"), "info"),
		MaxConcurrentSessions: intOr(getenv, "MAX_CONCURRENT_SESSIONS", DefaultMaxConcurrentSessions),
		SessionIdleTimeout:    millisOr(getenv, "SESSION_IDLE_TIMEOUT_MS", DefaultSessionIdleTimeout),
		MaxMessageSizeBytes:   int64Or(getenv, "MAX_MESSAGE_SIZE_BYTES", DefaultMaxMessageSizeBytes),
		RPCRequestTimeout:     millisOr(getenv, "RPC_REQUEST_TIMEOUT_MS", DefaultRPCRequestTimeout),
		RateLimitMax:          intOr(getenv, "RATE_LIMIT_MAX", DefaultRateLimitMax),
		RateLimitWindow:       millisOr(getenv, "RATE_LIMIT_WINDOW_MS", DefaultRateLimitWindow),
		HostedMode:            boolOr(getenv, "HOSTED_MODE", true),
		AllowInteractiveAuth:  boolOr(getenv, "ALLOW_INTERACTIVE_AUTH", false),
		CredentialsMasterKey:  getenv("CREDENTIALS_MASTER_KEY"),
		CredentialsStorePath:  getenv("CREDENTIALS_STORE_PATH"),
		DatabasePath:          getenv("DATABASE_PATH"),
		ClaudeBinaryPath:      getenv("CLAUDE_BINARY_PATH"),
		PiBinaryPath:          getenv("PI_BINARY_PATH"),
		ShutdownTimeout:       millisOr(getenv, "SHUTDOWN_TIMEOUT_MS", DefaultShutdownTimeout),
	}

	if key := cfg.CredentialsMasterKey; key != "" && len(key) < minMasterKeyLen {
		logger.Warnf("CREDENTIALS_MASTER_KEY is shorter than %d characters; credential vault disabled", minMasterKeyLen)
		cfg.CredentialsMasterKey = ""
	}

	if cfg.CredentialsStorePath == "" {
		p, err := xdg.DataFile("aperture/credentials.enc")
		if err != nil {
			return nil, fmt.Errorf("unable to resolve credentials store path: %w", err)
		}
		cfg.CredentialsStorePath = p
	}

	if cfg.DatabasePath == "" {
		p, err := xdg.DataFile("aperture/aperture.db")
		if err != nil {
			return nil, fmt.Errorf("unable to resolve database path: %w", err)
		}
		cfg.DatabasePath = p
	}

	return cfg, nil
}

// Validate checks the configuration invariants that must hold before the
// gateway starts.
func (c *Config) Validate() error {
	if c.APIToken == "" {
		return fmt.Errorf("APERTURE_API_TOKEN is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	if c.MaxConcurrentSessions < 1 {
		return fmt.Errorf("MAX_CONCURRENT_SESSIONS must be at least 1")
	}
	if c.MaxMessageSizeBytes < 1024 {
		return fmt.Errorf("MAX_MESSAGE_SIZE_BYTES must be at least 1024")
	}
	if c.RateLimitMax < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX must be at least 1")
	}
	return nil
}

// VaultEnabled reports whether a usable master key was configured.
func (c *Config) VaultEnabled() bool {
	return len(c.CredentialsMasterKey) >= minMasterKeyLen
}

// Address returns the host:port the HTTP listener binds to.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(getenv func(string) string, key string, def int) int {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warnf("Invalid value %q for %s, using default %d", raw, key, def)
		return def
	}
	return v
}

func int64Or(getenv func(string) string, key string, def int64) int64 {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.Warnf("Invalid value %q for %s, using default %d", raw, key, def)
		return def
	}
	return v
}

func boolOr(getenv func(string) string, key string, def bool) bool {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Warnf("Invalid value %q for %s, using default %t", raw, key, def)
		return def
	}
	return v
}

func millisOr(getenv func(string) string, key string, def time.Duration) time.Duration {
	raw := getenv(key)
	if raw == "" {
		return def
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		logger.Warnf("Invalid value %q for %s, using default %s", raw, key, def)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
