// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aperturehq/aperture/pkg/store"
)

// LogEvent appends one audit event and returns its per-session sequence
// number. The sequence is assigned inside the insert transaction so it is
// monotonic even under concurrent writers.
func (s *Store) LogEvent(ctx context.Context, sessionID, eventType string, payload json.RawMessage) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	payloadJSON := "null"
	if len(payload) > 0 {
		payloadJSON = string(payload)
	}
	seq, err := insertEventTx(ctx, tx, sessionID, eventType, payloadJSON, formatTime(time.Now()))
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return seq, nil
}

// ListEvents returns events newest first; audit consumers want tails.
func (s *Store) ListEvents(ctx context.Context, sessionID string, limit int) ([]*store.SessionEvent, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, event_type, json(payload), created_at
		FROM session_events
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*store.SessionEvent
	for rows.Next() {
		var (
			sid          string
			seq          int64
			eventType    string
			payloadBlob  []byte
			createdAtStr string
		)
		if err := rows.Scan(&sid, &seq, &eventType, &payloadBlob, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		createdAt, err := parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		var payload json.RawMessage
		if len(payloadBlob) > 0 && string(payloadBlob) != "null" {
			payload = json.RawMessage(payloadBlob)
		}
		events = append(events, &store.SessionEvent{
			SessionID: sid,
			Seq:       seq,
			Type:      eventType,
			Payload:   payload,
			CreatedAt: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}
	return events, nil
}

// insertEventTx assigns the next sequence number and inserts the event
// within the caller's transaction.
func insertEventTx(ctx context.Context, tx *sql.Tx, sessionID, eventType, payloadJSON, createdAt string) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM session_events WHERE session_id = ?`,
		sessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocating event seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_events (session_id, seq, event_type, payload, created_at)
		VALUES (?, ?, ?, jsonb(?), ?)`,
		sessionID, seq, eventType, payloadJSON, createdAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("session %q: %w", sessionID, store.ErrNotFound)
		}
		return 0, fmt.Errorf("inserting event: %w", err)
	}
	return seq, nil
}
