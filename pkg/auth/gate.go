// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth provides bearer-token authentication for the gateway API.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Failure reasons reported to clients. They are deliberately distinguishable
// so operators can tell a missing header from a stale token in access logs,
// but none of them leak the expected token.
const (
	reasonMissing   = "missing_token"
	reasonMalformed = "malformed_authorization"
	reasonInvalid   = "invalid_token"
)

// unprotectedPaths are reachable without credentials so load balancers and
// probes can hit them before any token is provisioned.
var unprotectedPaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
}

// Gate authenticates requests against a single static API token.
type Gate struct {
	token []byte
}

// NewGate creates a Gate for the given token. The token must be non-empty;
// the server refuses to start without one, so this is a programming error.
func NewGate(token string) *Gate {
	if token == "" {
		panic("auth: empty API token")
	}
	return &Gate{token: []byte(token)}
}

// Middleware returns an HTTP middleware that rejects requests lacking a
// valid token. Tokens are accepted from the Authorization header
// ("Bearer <token>") or, for browser EventSource clients that cannot set
// headers, from the "token" query parameter.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := unprotectedPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		presented, reason := extractToken(r)
		if reason != "" {
			g.unauthorized(w, reason)
			return
		}
		if subtle.ConstantTimeCompare([]byte(presented), g.token) != 1 {
			g.unauthorized(w, reasonInvalid)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken pulls the bearer token from the request. It returns the
// token and an empty reason on success, or an empty token and the failure
// reason otherwise.
func extractToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", reasonMalformed
		}
		return parts[1], ""
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok, ""
	}
	return "", reasonMissing
}

func (*Gate) unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Bearer error=%q", reason))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  "unauthorized",
		"reason": reason,
	})
}
