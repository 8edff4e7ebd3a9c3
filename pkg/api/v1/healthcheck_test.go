// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/agent/mocks"
	"github.com/aperturehq/aperture/pkg/store/sqlite"
)

func TestLiveness(t *testing.T) {
	t.Parallel()

	h := NewHealthRoutes(agent.NewRegistry(), nil, nil)
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Kind().Return(agent.KindClaude).AnyTimes()
	backend.EXPECT().Name().Return("Claude Agent SDK").AnyTimes()
	backend.EXPECT().EnsureInstalled(gomock.Any()).Return(agent.Readiness{
		Ready:      true,
		BinaryPath: "/usr/local/bin/claude",
		Version:    "2.1.0",
	})

	registry := agent.NewRegistry()
	registry.Register(backend)

	st, err := sqlite.New(t.Context(), filepath.Join(t.TempDir(), "health-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h := NewHealthRoutes(registry, st, nil)
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ReadyResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "/usr/local/bin/claude", resp.ClaudePath)
	assert.Empty(t, resp.Errors)
}

func TestReadinessBackendMissing(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Kind().Return(agent.KindClaude).AnyTimes()
	backend.EXPECT().Name().Return("Claude Agent SDK").AnyTimes()
	backend.EXPECT().EnsureInstalled(gomock.Any()).Return(agent.Readiness{
		Ready: false,
		Error: "claude binary not found in PATH",
	})

	registry := agent.NewRegistry()
	registry.Register(backend)

	st, err := sqlite.New(t.Context(), filepath.Join(t.TempDir(), "health-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h := NewHealthRoutes(registry, st, nil)
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp ReadyResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "not ready", resp.Status)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "claude_sdk")
	assert.Contains(t, resp.Errors[0], "not found in PATH")
}
