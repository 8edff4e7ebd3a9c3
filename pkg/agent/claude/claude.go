// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package claude adapts the Claude Agent SDK runner to the gateway backend
// contract. The runner is the claude CLI in stream-json mode: user turns go
// in as NDJSON messages on stdin, agent events come back as NDJSON on
// stdout, and control traffic (permissions, interrupts, setters) rides the
// same pipes as request/response frames.
package claude

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/errors"
)

const (
	backendName   = "claude"
	defaultBinary = "claude"

	versionProbeTimeout = 5 * time.Second
)

// Backend opens Claude sessions.
type Backend struct {
	binaryPath string
}

var _ agent.Backend = (*Backend)(nil)

// New creates the Claude backend. binaryPath overrides PATH lookup when
// non-empty.
func New(binaryPath string) *Backend {
	return &Backend{binaryPath: binaryPath}
}

// Name returns the human-readable backend name.
func (*Backend) Name() string { return backendName }

// Kind returns the backend's kind tag.
func (*Backend) Kind() agent.Kind { return agent.KindClaude }

// EnsureInstalled probes for the claude binary and its version.
func (b *Backend) EnsureInstalled(ctx context.Context) agent.Readiness {
	path, err := resolveBinary(b.binaryPath, defaultBinary)
	if err != nil {
		return agent.Readiness{Error: err.Error()}
	}
	return agent.Readiness{
		Ready:      true,
		BinaryPath: path,
		Version:    probeVersion(ctx, path),
	}
}

// ValidateAuth rejects auth combinations the Claude SDK cannot serve.
// Anthropic is the only supported provider.
func (*Backend) ValidateAuth(auth agent.SessionAuth, policy agent.AuthPolicy) error {
	return agent.ValidateAuth(auth, []string{agent.ProviderAnthropic}, policy)
}

// Open starts a claude runner for the session. The resolved credential is
// already folded into cfg.Env, so it is not consumed here.
func (b *Backend) Open(ctx context.Context, cfg agent.SessionConfig, _ *agent.ResolvedCredential) (agent.BackendSession, error) {
	ready := b.EnsureInstalled(ctx)
	if !ready.Ready {
		return nil, errors.NewBackendError(ready.Error, nil)
	}

	args := []string{
		"--input-format", "stream-json",
		"--output-format", "stream-json",
		"--verbose",
		"--include-partial-messages",
		"--permission-prompt-tool", "stdio",
	}
	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}
	if cfg.PermissionMode != "" {
		args = append(args, "--permission-mode", cfg.PermissionMode)
	}
	if cfg.Resuming() {
		args = append(args, "--resume", cfg.BackendSessionID)
	}

	proc, err := agent.StartProc(ready.BinaryPath, args, cfg.WorkingDir, cfg.Env)
	if err != nil {
		return nil, errors.NewBackendError("starting claude runner", err)
	}

	s := newSession(cfg, proc)
	go s.readLoop()
	return s, nil
}

// resolveBinary returns the runner path, honoring an explicit override
// before falling back to PATH lookup.
func resolveBinary(override, name string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("configured %s binary %q is not usable: %w", name, override, err)
		}
		return override, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s binary not found in PATH", name)
	}
	return path, nil
}

// probeVersion asks the runner for its version string. Failures degrade to
// an empty version rather than blocking readiness.
func probeVersion(ctx context.Context, path string) string {
	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
