// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/store"
)

func TestCreateSession(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)

	created, _ := env.createSession(t)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "claude_sdk", created.Agent)
	assert.Equal(t, store.StatusActive, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	// The backend session id comes from the opening status snapshot; the
	// persisted view has it.
	rec := env.do(t, http.MethodGet, "/v1/sessions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got SessionResponse
	decodeBody(t, rec, &got)
	assert.Equal(t, "bs-"+t.Name(), got.BackendSessionID)
	assert.True(t, got.Resumable)
}

func TestCreateSessionRejectsMalformedBody(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON request body")
}

func TestCreateSessionUnknownAgent(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/sessions", map[string]any{
		"agent": "cursor_sdk",
		"auth":  map[string]any{"mode": "oauth"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown agent kind")
}

func TestCreateSessionLimitReturns429(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)
	env.cfg.MaxConcurrentSessions = 1

	env.createSession(t)

	env.backend.EXPECT().ValidateAuth(gomock.Any(), gomock.Any()).Return(nil)
	rec := env.do(t, http.MethodPost, "/v1/sessions", map[string]any{
		"agent": "claude_sdk",
		"auth":  map[string]any{"mode": "oauth"},
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "session limit reached")
}

func TestListSessions(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)

	first, _ := env.createSession(t)
	second, _ := env.createSession(t)

	rec := env.do(t, http.MethodGet, "/v1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionListResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, 2, resp.Total)

	ids := []string{resp.Sessions[0].ID, resp.Sessions[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)

	rec = env.do(t, http.MethodGet, "/v1/sessions?status=all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp.Total)

	rec = env.do(t, http.MethodGet, "/v1/sessions?status=ended", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.Equal(t, 0, resp.Total)

	rec = env.do(t, http.MethodGet, "/v1/sessions?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown status filter")
}

func TestListResumableSessions(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)
	ctx := t.Context()

	created, _ := env.createSession(t)

	// A graceful shutdown demotes the session but keeps it resumable; the
	// static route must win over the {id} pattern.
	require.NoError(t, env.manager.TerminateAll(ctx))

	rec := env.do(t, http.MethodGet, "/v1/sessions/resumable", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionListResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, created.ID, resp.Sessions[0].ID)
	assert.Equal(t, store.StatusEnded, resp.Sessions[0].Status)
	assert.True(t, resp.Sessions[0].Resumable)
}

func TestGetSessionNotFound(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/sessions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Session not found")
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)
	ctx := t.Context()

	created, _ := env.createSession(t)

	rec := env.do(t, http.MethodDelete, "/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	sess, err := env.store.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnded, sess.Status)
	assert.Equal(t, store.ReasonTerminated, sess.EndedReason)
	assert.False(t, sess.Resumable(), "a terminated session is not resumable")

	rec = env.do(t, http.MethodDelete, "/v1/sessions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConnectSession(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)

	created, _ := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/v1/sessions/"+created.ID+"/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ConnectResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, created.ID, resp.ID)
	assert.False(t, resp.Restored, "a live session connects without a restore")
}

func TestConnectSessionRestoresAfterRestart(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)
	ctx := t.Context()

	created, _ := env.createSession(t)
	require.NoError(t, env.manager.TerminateAll(ctx))

	second := newStubBackendSession()
	env.backend.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any()).Return(second, nil)

	rec := env.do(t, http.MethodPost, "/v1/sessions/"+created.ID+"/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ConnectResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Restored)
	assert.Equal(t, store.StatusActive, resp.Status)
}

func TestConnectSessionGone(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)
	ctx := t.Context()

	created, _ := env.createSession(t)
	require.NoError(t, env.manager.Terminate(ctx, created.ID))

	// Deliberately terminated sessions are gone for good.
	rec := env.do(t, http.MethodPost, "/v1/sessions/"+created.ID+"/connect", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be resumed")

	rec = env.do(t, http.MethodPost, "/v1/sessions/"+uuid.NewString()+"/connect", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMessages(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)
	ctx := t.Context()

	created, _ := env.createSession(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, text := range []string{"first", "second", "third"} {
		require.NoError(t, env.store.SaveMessage(ctx, &store.Message{
			ID:        uuid.NewString(),
			SessionID: created.ID,
			Role:      store.RoleUser,
			Content:   agent.Text(text),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	rec := env.do(t, http.MethodGet, "/v1/sessions/"+created.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp MessageListResponse
	decodeBody(t, rec, &resp)
	require.Equal(t, 3, resp.Total)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, "first", resp.Messages[0].Content.PlainText())

	rec = env.do(t, http.MethodGet, "/v1/sessions/"+created.ID+"/messages?limit=1&offset=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.Equal(t, 3, resp.Total, "total counts all messages regardless of paging")
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "second", resp.Messages[0].Content.PlainText())

	rec = env.do(t, http.MethodGet, "/v1/sessions/"+created.ID+"/messages?limit=oops", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/sessions/"+uuid.NewString()+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMessagesEmpty(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)

	created, _ := env.createSession(t)

	rec := env.do(t, http.MethodGet, "/v1/sessions/"+created.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":[]`, "an empty history is a list, not null")
}
