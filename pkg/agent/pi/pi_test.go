// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package pi

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aperturehq/aperture/pkg/agent"
)

func TestBackend_NameAndKind(t *testing.T) {
	t.Parallel()
	b := New("")
	assert.Equal(t, "pi", b.Name())
	assert.Equal(t, agent.KindPi, b.Kind())
}

func TestEnsureInstalled(t *testing.T) {
	t.Parallel()

	missing := New(filepath.Join(t.TempDir(), "pi"))
	r := missing.EnsureInstalled(t.Context())
	assert.False(t, r.Ready)
	assert.Contains(t, r.Error, "not usable")

	bin := filepath.Join(t.TempDir(), "pi")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 0.9.3\n"), 0o755))
	r = New(bin).EnsureInstalled(t.Context())
	assert.True(t, r.Ready)
	assert.Equal(t, bin, r.BinaryPath)
	assert.Equal(t, "0.9.3", r.Version)
}

func TestValidateAuth_AllProviders(t *testing.T) {
	t.Parallel()
	b := New("")

	for _, provider := range []string{
		agent.ProviderAnthropic,
		agent.ProviderOpenAI,
		agent.ProviderGoogle,
		agent.ProviderGroq,
		agent.ProviderOpenRouter,
	} {
		auth := agent.SessionAuth{
			Mode:        agent.AuthModeAPIKey,
			ProviderKey: provider,
			APIKeyRef:   agent.APIKeyInline,
			APIKey:      "sk-1",
		}
		assert.NoError(t, b.ValidateAuth(auth, agent.AuthPolicy{}), "provider %s", provider)
	}

	auth := agent.SessionAuth{
		Mode:        agent.AuthModeAPIKey,
		ProviderKey: "bedrock",
		APIKeyRef:   agent.APIKeyInline,
		APIKey:      "sk-1",
	}
	err := b.ValidateAuth(auth, agent.AuthPolicy{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported by this backend")
}

// TestOpen_SpawnsRunner drives a stub runner script through the full open,
// ready, and dispose cycle.
func TestOpen_SpawnsRunner(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	script := filepath.Join(dir, "pi")
	require.NoError(t, os.WriteFile(script, []byte(
		"#!/bin/sh\n"+
			"echo \"$@\" > \"$ARGS_FILE\"\n"+
			"echo '{\"type\":\"ready\",\"sessionId\":\"pi-it-1\",\"model\":\"gpt-5-codex\",\"thinkingLevel\":\"medium\"}'\n"+
			"cat >/dev/null\n"), 0o755))

	cfg := agent.SessionConfig{
		SessionID:  "sess-1",
		WorkingDir: dir,
		Model:      "gpt-5-codex",
		Env:        []string{"PATH=" + os.Getenv("PATH"), "ARGS_FILE=" + argsFile},
	}

	bs, err := New(script).Open(t.Context(), cfg, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return bs.Status().BackendSessionID == "pi-it-1" },
		5*time.Second, 10*time.Millisecond, "the ready line never arrived")
	assert.Equal(t, "medium", bs.Status().ThinkingLevel)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "rpc")
	assert.Contains(t, string(args), "--model gpt-5-codex")
	assert.NotContains(t, string(args), "--session")

	events := make(chan agent.Event, 16)
	unsub := bs.Subscribe(func(ev agent.Event) { events <- ev })
	t.Cleanup(unsub)

	require.NoError(t, bs.Dispose(t.Context()))
	select {
	case ev := <-events:
		assert.Equal(t, agent.EventExit, ev.Type)
		assert.Equal(t, "exit", ev.Reason)
	default:
		t.Fatal("dispose must emit the exit event before returning")
	}
}

func TestOpen_ResumePassesSessionFlag(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	script := filepath.Join(dir, "pi")
	require.NoError(t, os.WriteFile(script, []byte(
		"#!/bin/sh\n"+
			"echo \"$@\" > \"$ARGS_FILE\"\n"+
			"cat >/dev/null\n"), 0o755))

	cfg := agent.SessionConfig{
		SessionID:        "sess-1",
		BackendSessionID: "pi-prior-7",
		WorkingDir:       dir,
		Env:              []string{"PATH=" + os.Getenv("PATH"), "ARGS_FILE=" + argsFile},
	}

	bs, err := New(script).Open(t.Context(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Dispose(t.Context()) })

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(argsFile)
		return err == nil && len(data) > 0
	}, 5*time.Second, 10*time.Millisecond)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "--session pi-prior-7")
	assert.Equal(t, "pi-prior-7", bs.Status().BackendSessionID)
}
