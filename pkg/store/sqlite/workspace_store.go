// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aperturehq/aperture/pkg/store"
)

// CreateWorkspace registers a repository root.
func (s *Store) CreateWorkspace(ctx context.Context, w *store.Workspace) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, repo_root, created_at)
		VALUES (?, ?, ?, ?)`,
		w.ID, w.Name, w.RepoRoot, formatTime(w.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("inserting workspace: %w", err)
	}
	return nil
}

// GetWorkspace retrieves a workspace by id.
func (s *Store) GetWorkspace(ctx context.Context, id string) (*store.Workspace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, repo_root, created_at FROM workspaces WHERE id = ?`, id)
	return scanWorkspace(row)
}

// ListWorkspaces returns all workspaces, newest first.
func (s *Store) ListWorkspaces(ctx context.Context) ([]*store.Workspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, repo_root, created_at FROM workspaces
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying workspaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var workspaces []*store.Workspace
	for rows.Next() {
		w, scanErr := scanWorkspace(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		workspaces = append(workspaces, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workspace rows: %w", err)
	}
	return workspaces, nil
}

// DeleteWorkspace removes the workspace row. Bindings cascade; sessions
// that referenced the workspace keep their rows with a cleared reference.
func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// BindWorkspaceAgent records which worktree and branch a session owns.
func (s *Store) BindWorkspaceAgent(ctx context.Context, wa *store.WorkspaceAgent) error {
	if wa.CreatedAt.IsZero() {
		wa.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_agents (workspace_id, session_id, branch, worktree_path, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		wa.WorkspaceID, wa.SessionID, wa.Branch, wa.WorktreePath, formatTime(wa.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("workspace %q or session %q: %w", wa.WorkspaceID, wa.SessionID, store.ErrNotFound)
		}
		return fmt.Errorf("inserting workspace agent: %w", err)
	}
	return nil
}

// GetWorkspaceAgent retrieves one binding.
func (s *Store) GetWorkspaceAgent(ctx context.Context, workspaceID, sessionID string) (*store.WorkspaceAgent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT workspace_id, session_id, branch, worktree_path, created_at
		FROM workspace_agents
		WHERE workspace_id = ? AND session_id = ?`,
		workspaceID, sessionID)
	return scanWorkspaceAgent(row)
}

// ListWorkspaceAgents returns all bindings for a workspace, oldest first.
func (s *Store) ListWorkspaceAgents(ctx context.Context, workspaceID string) ([]*store.WorkspaceAgent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT workspace_id, session_id, branch, worktree_path, created_at
		FROM workspace_agents
		WHERE workspace_id = ?
		ORDER BY created_at ASC, session_id ASC`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("querying workspace agents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var agents []*store.WorkspaceAgent
	for rows.Next() {
		wa, scanErr := scanWorkspaceAgent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		agents = append(agents, wa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workspace agent rows: %w", err)
	}
	return agents, nil
}

// UnbindWorkspaceAgent removes one binding. The worktree itself is not
// touched.
func (s *Store) UnbindWorkspaceAgent(ctx context.Context, workspaceID, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM workspace_agents WHERE workspace_id = ? AND session_id = ?`,
		workspaceID, sessionID)
	if err != nil {
		return fmt.Errorf("deleting workspace agent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanWorkspace(sc scanner) (*store.Workspace, error) {
	var (
		id           string
		name         string
		repoRoot     string
		createdAtStr string
	)
	err := sc.Scan(&id, &name, &repoRoot, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scanning workspace row: %w", err)
	}
	createdAt, err := parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &store.Workspace{
		ID:        id,
		Name:      name,
		RepoRoot:  repoRoot,
		CreatedAt: createdAt,
	}, nil
}

func scanWorkspaceAgent(sc scanner) (*store.WorkspaceAgent, error) {
	var (
		workspaceID  string
		sessionID    string
		branch       string
		worktreePath string
		createdAtStr string
	)
	err := sc.Scan(&workspaceID, &sessionID, &branch, &worktreePath, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scanning workspace agent row: %w", err)
	}
	createdAt, err := parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &store.WorkspaceAgent{
		WorkspaceID:  workspaceID,
		SessionID:    sessionID,
		Branch:       branch,
		WorktreePath: worktreePath,
		CreatedAt:    createdAt,
	}, nil
}
