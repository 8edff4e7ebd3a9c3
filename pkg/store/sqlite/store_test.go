// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "aperture-test.db")
	s, err := New(t.Context(), dbPath)
	require.NoError(t, err, "opening test store should succeed")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestSession(id string) *store.Session {
	return &store.Session{
		ID:     id,
		Agent:  agent.KindClaude,
		Status: store.StatusActive,
		Auth: agent.SessionAuth{
			Mode:        agent.AuthModeAPIKey,
			ProviderKey: agent.ProviderAnthropic,
			APIKeyRef:   agent.APIKeyInline,
		},
	}
}

func TestSaveAndGetSession(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	sess := newTestSession("sess-1")
	sess.Env = map[string]string{"TERM": "xterm-256color"}
	sess.Model = "claude-sonnet-4-5"
	require.NoError(t, s.SaveSession(ctx, sess))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.ID)
	assert.Equal(t, agent.KindClaude, got.Agent)
	assert.Equal(t, store.StatusActive, got.Status)
	assert.Equal(t, agent.AuthModeAPIKey, got.Auth.Mode)
	assert.Equal(t, agent.ProviderAnthropic, got.Auth.ProviderKey)
	assert.Equal(t, map[string]string{"TERM": "xterm-256color"}, got.Env)
	assert.Equal(t, "claude-sonnet-4-5", got.Model)
	assert.Nil(t, got.EndedAt)
	assert.False(t, got.CreatedAt.IsZero(), "created_at should be stamped")
}

func TestSaveSession_NeverPersistsAPIKey(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	sess := newTestSession("sess-secret")
	sess.Auth.APIKey = "sk-very-secret"
	require.NoError(t, s.SaveSession(ctx, sess))

	got, err := s.GetSession(ctx, "sess-secret")
	require.NoError(t, err)
	assert.Empty(t, got.Auth.APIKey, "cleartext key must not round-trip through the store")
}

func TestSaveSession_Duplicate(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.SaveSession(ctx, newTestSession("dup")))
	err := s.SaveSession(ctx, newTestSession("dup"))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestGetSession_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.GetSession(t.Context(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListSessions_FilterAndOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"s-old", "s-mid", "s-new"} {
		sess := newTestSession(id)
		sess.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveSession(ctx, sess))
	}
	require.NoError(t, s.EndSession(ctx, "s-mid", store.ReasonTerminated))

	all, err := s.ListSessions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "s-new", all[0].ID, "newest first")
	assert.Equal(t, "s-old", all[2].ID)

	ended, err := s.ListSessions(ctx, store.StatusEnded)
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, "s-mid", ended[0].ID)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestSetBackendSessionID_SetOnce(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.SaveSession(ctx, newTestSession("sess-b")))

	require.NoError(t, s.SetBackendSessionID(ctx, "sess-b", "backend-1"))
	// Same value again is a no-op.
	require.NoError(t, s.SetBackendSessionID(ctx, "sess-b", "backend-1"))
	// A different value is refused.
	err := s.SetBackendSessionID(ctx, "sess-b", "backend-2")
	assert.ErrorIs(t, err, store.ErrBackendIDSet)

	got, err := s.GetSession(ctx, "sess-b")
	require.NoError(t, err)
	assert.Equal(t, "backend-1", got.BackendSessionID)

	err = s.SetBackendSessionID(ctx, "missing", "backend-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEndSession_FirstReasonWins(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.SaveSession(ctx, newTestSession("sess-end")))
	require.NoError(t, s.EndSession(ctx, "sess-end", store.ReasonIdleTimeout))
	require.NoError(t, s.EndSession(ctx, "sess-end", store.ReasonTerminated), "second end is a no-op")

	got, err := s.GetSession(ctx, "sess-end")
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnded, got.Status)
	assert.Equal(t, store.ReasonIdleTimeout, got.EndedReason)
	require.NotNil(t, got.EndedAt)

	err = s.EndSession(ctx, "missing", store.ReasonTerminated)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMarkIdle_NeverMovesBackwards(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.SaveSession(ctx, newTestSession("sess-i")))
	require.NoError(t, s.MarkIdle(ctx, "sess-i"))

	got, err := s.GetSession(ctx, "sess-i")
	require.NoError(t, err)
	assert.Equal(t, store.StatusIdle, got.Status)

	require.NoError(t, s.EndSession(ctx, "sess-i", store.ReasonIdleTimeout))
	require.NoError(t, s.MarkIdle(ctx, "sess-i"), "idling an ended session is a no-op")

	got, err = s.GetSession(ctx, "sess-i")
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnded, got.Status, "status never moves backwards")

	err = s.MarkIdle(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTouchSession(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	sess := newTestSession("sess-t")
	sess.CreatedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSession(ctx, sess))

	require.NoError(t, s.TouchSession(ctx, "sess-t"))
	got, err := s.GetSession(ctx, "sess-t")
	require.NoError(t, err)
	assert.True(t, got.LastActivityAt.After(got.CreatedAt), "touch should bump last_activity_at")

	err = s.TouchSession(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecoverStartup(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	withBackend := newTestSession("sess-resumable")
	require.NoError(t, s.SaveSession(ctx, withBackend))
	require.NoError(t, s.SetBackendSessionID(ctx, "sess-resumable", "backend-xyz"))

	require.NoError(t, s.SaveSession(ctx, newTestSession("sess-plain")))

	finished := newTestSession("sess-done")
	require.NoError(t, s.SaveSession(ctx, finished))
	require.NoError(t, s.EndSession(ctx, "sess-done", store.ReasonTerminated))

	demoted, err := s.RecoverStartup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, demoted, "only live sessions are demoted")

	got, err := s.GetSession(ctx, "sess-resumable")
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnded, got.Status)
	assert.Equal(t, store.ReasonServerRestart, got.EndedReason)

	// Each demoted session gets an audit event.
	events, err := s.ListEvents(ctx, "sess-resumable", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, store.EventSessionEnded, events[0].Type)

	// Only the backend-id-bearing session is resumable.
	resumable, err := s.ListResumable(ctx)
	require.NoError(t, err)
	require.Len(t, resumable, 1)
	assert.Equal(t, "sess-resumable", resumable[0].ID)

	// A second recovery finds nothing to do.
	demoted, err = s.RecoverStartup(ctx)
	require.NoError(t, err)
	assert.Zero(t, demoted)
}

func TestReviveSession(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.SaveSession(ctx, newTestSession("sess-r")))
	require.NoError(t, s.SetBackendSessionID(ctx, "sess-r", "backend-r"))
	_, err := s.RecoverStartup(ctx)
	require.NoError(t, err)

	require.NoError(t, s.ReviveSession(ctx, "sess-r"))
	got, err := s.GetSession(ctx, "sess-r")
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, got.Status)
	assert.Nil(t, got.EndedAt)
	assert.Empty(t, got.EndedReason)

	// Deliberately ended sessions stay ended.
	require.NoError(t, s.SaveSession(ctx, newTestSession("sess-t")))
	require.NoError(t, s.EndSession(ctx, "sess-t", store.ReasonTerminated))
	err = s.ReviveSession(ctx, "sess-t")
	assert.ErrorIs(t, err, store.ErrNotResumable)

	err = s.ReviveSession(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteSession_Cascades(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	ws := &store.Workspace{ID: "ws-1", RepoRoot: "/tmp/repo"}
	require.NoError(t, s.CreateWorkspace(ctx, ws))

	sess := newTestSession("sess-del")
	sess.WorkspaceID = "ws-1"
	require.NoError(t, s.SaveSession(ctx, sess))
	require.NoError(t, s.BindWorkspaceAgent(ctx, &store.WorkspaceAgent{
		WorkspaceID:  "ws-1",
		SessionID:    "sess-del",
		Branch:       "aperture/sess-del",
		WorktreePath: "/tmp/worktrees/sess-del",
	}))
	require.NoError(t, s.SaveMessage(ctx, &store.Message{
		ID:        "msg-1",
		SessionID: "sess-del",
		Role:      store.RoleUser,
		Content:   agent.Text("hello"),
	}))
	_, err := s.LogEvent(ctx, "sess-del", store.EventSessionCreated, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, "sess-del"))

	_, err = s.GetSession(ctx, "sess-del")
	assert.ErrorIs(t, err, store.ErrNotFound)

	msgs, err := s.ListMessages(ctx, "sess-del", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs, "messages cascade")

	events, err := s.ListEvents(ctx, "sess-del", 0)
	require.NoError(t, err)
	assert.Empty(t, events, "events cascade")

	_, err = s.GetWorkspaceAgent(ctx, "ws-1", "sess-del")
	assert.ErrorIs(t, err, store.ErrNotFound, "bindings cascade")

	// The workspace itself survives.
	_, err = s.GetWorkspace(ctx, "ws-1")
	assert.NoError(t, err)

	err = s.DeleteSession(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMessages_RoundTripAndOrdering(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.SaveSession(ctx, newTestSession("sess-m")))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	blocks := agent.Blocks(
		agent.ContentBlock{Type: agent.BlockTypeText, Text: "look at this"},
		agent.ContentBlock{Type: agent.BlockTypeImage, MimeType: "image/png", Data: "aGVsbG8="},
	)
	msgs := []*store.Message{
		{ID: "m-1", SessionID: "sess-m", Role: store.RoleUser, Content: agent.Text("hi"), CreatedAt: base},
		{ID: "m-2", SessionID: "sess-m", Role: store.RoleAssistant, Content: agent.Text("hello"), CreatedAt: base.Add(time.Second)},
		{ID: "m-3", SessionID: "sess-m", Role: store.RoleUser, Content: blocks, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, m := range msgs {
		require.NoError(t, s.SaveMessage(ctx, m))
	}

	got, err := s.ListMessages(ctx, "sess-m", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "m-1", got[0].ID, "ascending order")
	assert.Equal(t, "hi", got[0].Content.Text)
	assert.Equal(t, "m-3", got[2].ID)
	require.Len(t, got[2].Content.Blocks, 2)
	assert.Equal(t, agent.BlockTypeImage, got[2].Content.Blocks[1].Type)
	assert.Equal(t, "aGVsbG8=", got[2].Content.Blocks[1].Data)

	// Pagination.
	page, err := s.ListMessages(ctx, "sess-m", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "m-2", page[0].ID)

	count, err := s.CountMessages(ctx, "sess-m")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSaveMessage_MissingSession(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	err := s.SaveMessage(t.Context(), &store.Message{
		ID:        "m-orphan",
		SessionID: "missing",
		Role:      store.RoleUser,
		Content:   agent.Text("hi"),
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEvents_SequenceAndOrdering(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.SaveSession(ctx, newTestSession("sess-e")))

	seq1, err := s.LogEvent(ctx, "sess-e", store.EventSessionCreated, json.RawMessage(`{"agent":"claude_sdk"}`))
	require.NoError(t, err)
	seq2, err := s.LogEvent(ctx, "sess-e", "message", nil)
	require.NoError(t, err)
	seq3, err := s.LogEvent(ctx, "sess-e", store.EventSessionEnded, json.RawMessage(`{"reason":"terminated"}`))
	require.NoError(t, err)

	assert.Equal(t, int64(1), seq1)
	assert.Equal(t, int64(2), seq2)
	assert.Equal(t, int64(3), seq3)

	events, err := s.ListEvents(ctx, "sess-e", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, int64(3), events[0].Seq, "newest first")
	assert.Equal(t, int64(1), events[2].Seq)
	assert.Nil(t, events[1].Payload, "nil payload round-trips as nil")
	assert.JSONEq(t, `{"reason":"terminated"}`, string(events[0].Payload))

	tail, err := s.ListEvents(ctx, "sess-e", 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, int64(3), tail[0].Seq)

	_, err = s.LogEvent(ctx, "missing", "message", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWorkspaces_CRUD(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	ws := &store.Workspace{ID: "ws-crud", Name: "demo", RepoRoot: "/srv/repo"}
	require.NoError(t, s.CreateWorkspace(ctx, ws))
	assert.ErrorIs(t, s.CreateWorkspace(ctx, ws), store.ErrAlreadyExists)

	got, err := s.GetWorkspace(ctx, "ws-crud")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)
	assert.Equal(t, "/srv/repo", got.RepoRoot)

	list, err := s.ListWorkspaces(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteWorkspace(ctx, "ws-crud"))
	_, err = s.GetWorkspace(ctx, "ws-crud")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteWorkspace(ctx, "ws-crud"), store.ErrNotFound)
}

func TestWorkspaceAgents_BindAndCascade(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.CreateWorkspace(ctx, &store.Workspace{ID: "ws-b", RepoRoot: "/srv/repo"}))
	sessW := newTestSession("sess-w")
	sessW.WorkspaceID = "ws-b"
	require.NoError(t, s.SaveSession(ctx, sessW))

	wa := &store.WorkspaceAgent{
		WorkspaceID:  "ws-b",
		SessionID:    "sess-w",
		Branch:       "aperture/sess-w",
		WorktreePath: "/srv/worktrees/sess-w",
	}
	require.NoError(t, s.BindWorkspaceAgent(ctx, wa))
	assert.ErrorIs(t, s.BindWorkspaceAgent(ctx, wa), store.ErrAlreadyExists)

	got, err := s.GetWorkspaceAgent(ctx, "ws-b", "sess-w")
	require.NoError(t, err)
	assert.Equal(t, "aperture/sess-w", got.Branch)

	agents, err := s.ListWorkspaceAgents(ctx, "ws-b")
	require.NoError(t, err)
	assert.Len(t, agents, 1)

	// Deleting the workspace cascades bindings and clears the session's
	// reference without ending the session.
	require.NoError(t, s.DeleteWorkspace(ctx, "ws-b"))
	_, err = s.GetWorkspaceAgent(ctx, "ws-b", "sess-w")
	assert.ErrorIs(t, err, store.ErrNotFound)

	sess, err := s.GetSession(ctx, "sess-w")
	require.NoError(t, err)
	assert.Empty(t, sess.WorkspaceID)
	assert.Equal(t, store.StatusActive, sess.Status)
}

func TestBindWorkspaceAgent_MissingParents(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	err := s.BindWorkspaceAgent(t.Context(), &store.WorkspaceAgent{
		WorkspaceID:  "missing-ws",
		SessionID:    "missing-sess",
		Branch:       "aperture/x",
		WorktreePath: "/tmp/x",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
