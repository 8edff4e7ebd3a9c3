// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package store provides the durable persistence interfaces for the gateway:
// session metadata, replayable message history, audit events, and workspace
// bindings.
package store

import (
	"encoding/json"
	"time"

	"github.com/aperturehq/aperture/pkg/agent"
)

// Session statuses. A session's status only ever advances.
const (
	StatusActive = "active"
	StatusIdle   = "idle"
	StatusEnded  = "ended"
)

// End reasons recorded when a session reaches StatusEnded.
const (
	ReasonTerminated    = "terminated"
	ReasonIdleTimeout   = "idle_timeout"
	ReasonBackendExit   = "exit"
	ReasonBackendError  = "error"
	ReasonServerRestart = "server restart"
)

// Lifecycle audit event types written by the manager and by crash recovery.
// Runtime events carry their own types.
const (
	EventSessionCreated = "session_created"
	EventSessionEnded   = "session_ended"
)

// Session is the durable record of a gateway session.
type Session struct {
	ID               string            `json:"id"`
	Agent            agent.Kind        `json:"agent"`
	Status           string            `json:"status"`
	Auth             agent.SessionAuth `json:"auth"`
	WorkspaceID      string            `json:"workspaceId,omitempty"`
	WorktreePath     string            `json:"worktreePath,omitempty"`
	BackendSessionID string            `json:"backendSessionId,omitempty"`
	Env              map[string]string `json:"env,omitempty"`
	Model            string            `json:"model,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	LastActivityAt   time.Time         `json:"lastActivityAt"`
	EndedAt          *time.Time        `json:"endedAt,omitempty"`
	EndedReason      string            `json:"endedReason,omitempty"`
}

// Resumable reports whether the session can be restored against its backend.
func (s *Session) Resumable() bool {
	if s.BackendSessionID == "" {
		return false
	}
	return s.EndedAt == nil || s.EndedReason == ReasonServerRestart
}

// Message is one persisted conversation turn. Messages are append-only and
// ordered by (sessionId, createdAt, id).
type Message struct {
	ID        string               `json:"id"`
	SessionID string               `json:"sessionId"`
	Role      string               `json:"role"`
	Content   agent.MessageContent `json:"content"`
	Metadata  map[string]any       `json:"metadata,omitempty"`
	CreatedAt time.Time            `json:"timestamp"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// SessionEvent is one append-only audit record. Seq is monotonic per session
// and assigned by the store inside the insert transaction.
type SessionEvent struct {
	SessionID string          `json:"sessionId"`
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"timestamp"`
}

// Workspace is a registered repository root that sessions can check out from.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	RepoRoot  string    `json:"repoRoot"`
	CreatedAt time.Time `json:"createdAt"`
}

// WorkspaceAgent binds a session to its isolated worktree inside a workspace.
// The worktree directory on disk outlives both the binding and the session so
// users can inspect uncommitted changes after a session ends.
type WorkspaceAgent struct {
	WorkspaceID  string    `json:"workspaceId"`
	SessionID    string    `json:"sessionId"`
	Branch       string    `json:"branch"`
	WorktreePath string    `json:"worktreePath"`
	CreatedAt    time.Time `json:"createdAt"`
}
