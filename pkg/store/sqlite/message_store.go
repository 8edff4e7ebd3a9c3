// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/store"
)

// SaveMessage appends one message to a session's history.
func (s *Store) SaveMessage(ctx context.Context, m *store.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	contentJSON, err := json.Marshal(m.Content)
	if err != nil {
		return fmt.Errorf("encoding content: %w", err)
	}
	metadataJSON, err := encodeJSONB(mapAnyOrNil(m.Metadata))
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, metadata, created_at)
		VALUES (?, ?, ?, jsonb(?), jsonb(?), ?)`,
		m.ID,
		m.SessionID,
		m.Role,
		string(contentJSON),
		metadataJSON,
		formatTime(m.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("session %q: %w", m.SessionID, store.ErrNotFound)
		}
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListMessages returns messages in ascending chronological order.
func (s *Store) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]*store.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, json(content), json(metadata), created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`,
		sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*store.Message
	for rows.Next() {
		m, scanErr := scanMessage(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

// CountMessages returns the total number of messages for the session.
func (s *Store) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}

// scanMessage scans one message row.
func scanMessage(sc scanner) (*store.Message, error) {
	var (
		id           string
		sessionID    string
		role         string
		contentBlob  []byte
		metadataBlob []byte
		createdAtStr string
	)

	err := sc.Scan(&id, &sessionID, &role, &contentBlob, &metadataBlob, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scanning message row: %w", err)
	}

	createdAt, err := parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	var content agent.MessageContent
	if err := json.Unmarshal(contentBlob, &content); err != nil {
		return nil, fmt.Errorf("decoding content: %w", err)
	}
	var metadata map[string]any
	if err := decodeJSONB(metadataBlob, &metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}

	return &store.Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: createdAt,
	}, nil
}

// mapAnyOrNil normalizes an empty map to nil so it is stored as JSON null.
func mapAnyOrNil(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}
