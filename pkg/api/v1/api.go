// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package v1 provides version 1 of the aperture gateway API: session
// lifecycle REST endpoints, the bidirectional WebSocket frame channel, the
// SSE event channel, and credential and workspace management.
package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/logger"
)

// requestTimeout bounds the request/response endpoints. Stream endpoints
// are exempt; they live as long as their session.
const requestTimeout = 60 * time.Second

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
	return nil
}

// decodeJSON decodes the request body into v. Malformed bodies surface as
// validation errors so the caller's taxonomy mapping applies.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.NewValidationError("invalid JSON request body", err)
	}
	return nil
}
