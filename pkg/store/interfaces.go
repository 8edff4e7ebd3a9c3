// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=interfaces.go Store,SessionStore,MessageStore,EventStore,WorkspaceStore

// SessionStore persists session metadata.
type SessionStore interface {
	// SaveSession inserts a new session record. Returns ErrAlreadyExists if
	// the id is taken.
	SaveSession(ctx context.Context, s *Session) error

	// GetSession returns the session or ErrNotFound.
	GetSession(ctx context.Context, id string) (*Session, error)

	// ListSessions returns sessions newest first, optionally filtered by
	// status. An empty status returns all sessions.
	ListSessions(ctx context.Context, status string) ([]*Session, error)

	// ListActive returns sessions whose status is not ended, newest first.
	ListActive(ctx context.Context) ([]*Session, error)

	// ListResumable returns sessions that hold a backend session id and were
	// not deliberately ended, newest first.
	ListResumable(ctx context.Context) ([]*Session, error)

	// SetBackendSessionID records the backend's session id. The id is set
	// once and never overwritten; a second call with a different value
	// returns ErrBackendIDSet.
	SetBackendSessionID(ctx context.Context, id, backendSessionID string) error

	// TouchSession bumps last_activity_at to now.
	TouchSession(ctx context.Context, id string) error

	// MarkIdle advances the session's status to idle. Ended sessions are
	// left untouched.
	MarkIdle(ctx context.Context, id string) error

	// EndSession marks the session ended with the given reason and stamps
	// ended_at. Ending an already ended session is a no-op.
	EndSession(ctx context.Context, id, reason string) error

	// ReviveSession returns a restart-demoted session to active for a lazy
	// resume. Deliberately ended sessions return ErrNotResumable; status
	// monotonicity otherwise holds.
	ReviveSession(ctx context.Context, id string) error

	// DeleteSession removes the session row. Messages, events and workspace
	// bindings cascade.
	DeleteSession(ctx context.Context, id string) error

	// RecoverStartup demotes every non-ended session to ended with reason
	// "server restart" and returns how many rows were demoted. Called once
	// at boot before the listener accepts traffic.
	RecoverStartup(ctx context.Context) (int, error)
}

// MessageStore persists conversation history for replay.
type MessageStore interface {
	// SaveMessage appends one message. The session must exist.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns messages in ascending chronological order.
	// limit <= 0 means no limit; offset skips from the start.
	ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]*Message, error)

	// CountMessages returns the total number of messages for the session.
	CountMessages(ctx context.Context, sessionID string) (int, error)
}

// EventStore persists the append-only audit trail.
type EventStore interface {
	// LogEvent appends an event and returns its per-session sequence number.
	// Sequence numbers start at 1 and never repeat within a session.
	LogEvent(ctx context.Context, sessionID, eventType string, payload json.RawMessage) (int64, error)

	// ListEvents returns events newest first. limit <= 0 means no limit.
	ListEvents(ctx context.Context, sessionID string, limit int) ([]*SessionEvent, error)
}

// WorkspaceStore persists workspace registrations and worktree bindings.
type WorkspaceStore interface {
	// CreateWorkspace registers a repository root.
	CreateWorkspace(ctx context.Context, w *Workspace) error

	// GetWorkspace returns the workspace or ErrNotFound.
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)

	// ListWorkspaces returns all workspaces, newest first.
	ListWorkspaces(ctx context.Context) ([]*Workspace, error)

	// DeleteWorkspace removes the workspace row. Bindings cascade; sessions
	// that referenced it keep running with a cleared workspace id.
	DeleteWorkspace(ctx context.Context, id string) error

	// BindWorkspaceAgent records which worktree and branch a session owns.
	BindWorkspaceAgent(ctx context.Context, wa *WorkspaceAgent) error

	// GetWorkspaceAgent returns the binding or ErrNotFound.
	GetWorkspaceAgent(ctx context.Context, workspaceID, sessionID string) (*WorkspaceAgent, error)

	// ListWorkspaceAgents returns all bindings for a workspace, oldest first.
	ListWorkspaceAgents(ctx context.Context, workspaceID string) ([]*WorkspaceAgent, error)

	// UnbindWorkspaceAgent removes one binding. The worktree itself is not
	// touched.
	UnbindWorkspaceAgent(ctx context.Context, workspaceID, sessionID string) error
}

// Store is the composed persistence interface the session manager consumes.
type Store interface {
	SessionStore
	MessageStore
	EventStore
	WorkspaceStore

	// Close releases the underlying database handle.
	Close() error
}
