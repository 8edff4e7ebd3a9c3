// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/store"
)

// sessionColumns is the SELECT column list shared by Get and List queries.
const sessionColumns = `id, agent, status, auth_mode, provider_key, api_key_ref,
			stored_credential_id, workspace_id, worktree_path, backend_session_id,
			json(env), model, created_at, last_activity_at, ended_at, ended_reason`

// SaveSession inserts a new session record. The cleartext API key is never
// written; only the auth shape survives.
func (s *Store) SaveSession(ctx context.Context, sess *store.Session) error {
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.LastActivityAt.IsZero() {
		sess.LastActivityAt = sess.CreatedAt
	}
	if sess.Status == "" {
		sess.Status = store.StatusActive
	}

	envJSON, err := encodeJSONB(mapOrNil(sess.Env))
	if err != nil {
		return fmt.Errorf("encoding env: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (
			id, agent, status, auth_mode, provider_key, api_key_ref,
			stored_credential_id, workspace_id, worktree_path,
			backend_session_id, env, model, created_at, last_activity_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, jsonb(?), ?, ?, ?)`,
		sess.ID,
		string(sess.Agent),
		sess.Status,
		string(sess.Auth.Mode),
		sess.Auth.ProviderKey,
		string(sess.Auth.APIKeyRef),
		nullString(sess.Auth.StoredCredentialID),
		nullString(sess.WorkspaceID),
		nullString(sess.WorktreePath),
		nullString(sess.BackendSessionID),
		envJSON,
		nullString(sess.Model),
		formatTime(sess.CreatedAt),
		formatTime(sess.LastActivityAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("workspace %q: %w", sess.WorkspaceID, store.ErrNotFound)
		}
		return fmt.Errorf("inserting session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*store.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// ListSessions returns sessions newest first, optionally filtered by status.
func (s *Store) ListSessions(ctx context.Context, status string) ([]*store.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	return s.querySessions(ctx, query, args...)
}

// ListActive returns sessions whose status is not ended, newest first.
func (s *Store) ListActive(ctx context.Context) ([]*store.Session, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE status != ? ORDER BY created_at DESC, id DESC`,
		store.StatusEnded)
}

// ListResumable returns sessions that hold a backend session id and either
// are still live or were ended by a gateway restart.
func (s *Store) ListResumable(ctx context.Context) ([]*store.Session, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE backend_session_id IS NOT NULL AND backend_session_id != ''
		   AND (ended_at IS NULL OR ended_reason = ?)
		 ORDER BY created_at DESC, id DESC`,
		store.ReasonServerRestart)
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]*store.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*store.Session
	for rows.Next() {
		sess, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// SetBackendSessionID records the backend's durable session id exactly once.
func (s *Store) SetBackendSessionID(ctx context.Context, id, backendSessionID string) error {
	if backendSessionID == "" {
		return fmt.Errorf("backend session id must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	var current sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT backend_session_id FROM sessions WHERE id = ?`, id,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up session: %w", err)
	}
	if current.Valid && current.String != "" {
		if current.String == backendSessionID {
			return nil
		}
		return store.ErrBackendIDSet
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET backend_session_id = ? WHERE id = ?`,
		backendSessionID, id,
	); err != nil {
		return fmt.Errorf("updating backend session id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// TouchSession bumps last_activity_at to now.
func (s *Store) TouchSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("touching session: %w", err)
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

// MarkIdle advances an active session to idle. Already idle or ended
// sessions are left untouched.
func (s *Store) MarkIdle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ? WHERE id = ? AND status = ?`,
		store.StatusIdle, id, store.StatusActive)
	if err != nil {
		return fmt.Errorf("marking session idle: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return s.requireSession(ctx, id)
	}
	return nil
}

// EndSession marks the session ended with the given reason. Ending an
// already ended session is a no-op; the first reason wins.
func (s *Store) EndSession(ctx context.Context, id, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ?, ended_reason = ?
		 WHERE id = ? AND status != ?`,
		store.StatusEnded, formatTime(time.Now()), reason, id, store.StatusEnded)
	if err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return s.requireSession(ctx, id)
	}
	return nil
}

// ReviveSession returns a restart-demoted session to active so a client can
// resume it. Sessions ended for any other reason stay ended.
func (s *Store) ReviveSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions
		 SET status = ?, ended_at = NULL, ended_reason = NULL, last_activity_at = ?
		 WHERE id = ? AND (ended_at IS NULL OR ended_reason = ?)`,
		store.StatusActive, formatTime(time.Now()), id, store.ReasonServerRestart)
	if err != nil {
		return fmt.Errorf("reviving session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		if err := s.requireSession(ctx, id); err != nil {
			return err
		}
		return store.ErrNotResumable
	}
	return nil
}

// DeleteSession removes the session row. Messages, events and workspace
// bindings cascade.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
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

// RecoverStartup demotes every non-ended session to ended with reason
// "server restart" and writes one audit event per demoted session.
func (s *Store) RecoverStartup(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM sessions WHERE status != ?`, store.StatusEnded)
	if err != nil {
		return 0, fmt.Errorf("querying live sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating session ids: %w", err)
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("closing session id rows: %w", err)
	}

	if len(ids) == 0 {
		return 0, tx.Commit()
	}

	endedAt := formatTime(time.Now())
	payload := fmt.Sprintf(`{"reason":%q}`, store.ReasonServerRestart)
	for _, id := range ids {
		if _, err := insertEventTx(ctx, tx, id, store.EventSessionEnded, payload, endedAt); err != nil {
			return 0, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET status = ?, ended_at = ?, ended_reason = ?
		 WHERE status != ?`,
		store.StatusEnded, endedAt, store.ReasonServerRestart, store.StatusEnded,
	); err != nil {
		return 0, fmt.Errorf("demoting sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return len(ids), nil
}

// requireSession distinguishes a missing session from a no-op update.
func (s *Store) requireSession(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up session: %w", err)
	}
	return nil
}

// scanSession scans one session row.
func scanSession(sc scanner) (*store.Session, error) {
	var (
		id               string
		agentKind        string
		status           string
		authMode         string
		providerKey      string
		apiKeyRef        string
		storedCredential sql.NullString
		workspaceID      sql.NullString
		worktreePath     sql.NullString
		backendSessionID sql.NullString
		envBlob          []byte
		model            sql.NullString
		createdAtStr     string
		lastActivityStr  string
		endedAtStr       sql.NullString
		endedReason      sql.NullString
	)

	err := sc.Scan(
		&id, &agentKind, &status, &authMode, &providerKey, &apiKeyRef,
		&storedCredential, &workspaceID, &worktreePath, &backendSessionID,
		&envBlob, &model, &createdAtStr, &lastActivityStr, &endedAtStr, &endedReason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scanning session row: %w", err)
	}

	createdAt, err := parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	lastActivityAt, err := parseTime(lastActivityStr)
	if err != nil {
		return nil, fmt.Errorf("parsing last_activity_at: %w", err)
	}
	endedAt, err := parseNullTime(endedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing ended_at: %w", err)
	}

	var env map[string]string
	if err := decodeJSONB(envBlob, &env); err != nil {
		return nil, fmt.Errorf("decoding env: %w", err)
	}

	return &store.Session{
		ID:     id,
		Agent:  agent.Kind(agentKind),
		Status: status,
		Auth: agent.SessionAuth{
			Mode:               agent.AuthMode(authMode),
			ProviderKey:        providerKey,
			APIKeyRef:          agent.APIKeyRef(apiKeyRef),
			StoredCredentialID: storedCredential.String,
		},
		WorkspaceID:      workspaceID.String,
		WorktreePath:     worktreePath.String,
		BackendSessionID: backendSessionID.String,
		Env:              env,
		Model:            model.String,
		CreatedAt:        createdAt,
		LastActivityAt:   lastActivityAt,
		EndedAt:          endedAt,
		EndedReason:      endedReason.String,
	}, nil
}

// nullString maps the empty string to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// mapOrNil normalizes an empty map to nil so it is stored as JSON null.
func mapOrNil(m map[string]string) any {
	if len(m) == 0 {
		return nil
	}
	return m
}
