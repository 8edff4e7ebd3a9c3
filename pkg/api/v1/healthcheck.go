// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/config"
	"github.com/aperturehq/aperture/pkg/store"
)

// HealthRoutes implements the liveness and readiness probes.
type HealthRoutes struct {
	registry *agent.Registry
	store    store.Store
	cfg      *config.Config
}

// NewHealthRoutes creates the health probe handlers.
func NewHealthRoutes(registry *agent.Registry, st store.Store, cfg *config.Config) *HealthRoutes {
	return &HealthRoutes{
		registry: registry,
		store:    st,
		cfg:      cfg,
	}
}

// ReadyResponse is the readiness probe payload.
type ReadyResponse struct {
	Status     string   `json:"status"`
	ClaudePath string   `json:"claudePath,omitempty"`
	PiPath     string   `json:"piPath,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// Liveness
//
//	@Summary		Liveness check
//	@Description	Check if the gateway process is up
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/healthz [get]
func (*HealthRoutes) Liveness(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness
//
//	@Summary		Readiness check
//	@Description	Check whether the agent backends and the session store are usable
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	ReadyResponse
//	@Failure		503	{object}	ReadyResponse
//	@Router			/readyz [get]
func (h *HealthRoutes) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := ReadyResponse{Status: "ready"}

	kinds := h.registry.Kinds()
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, kind := range kinds {
		backend, err := h.registry.Get(kind)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", kind, err))
			continue
		}
		readiness := backend.EnsureInstalled(ctx)
		if !readiness.Ready {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %s", kind, readiness.Error))
			continue
		}
		switch kind {
		case agent.KindClaude:
			resp.ClaudePath = readiness.BinaryPath
		case agent.KindPi:
			resp.PiPath = readiness.BinaryPath
		}
	}

	// Any error other than not-found means the database is unreachable.
	if _, err := h.store.GetSession(ctx, "readiness-probe"); err != nil && !errors.Is(err, store.ErrNotFound) {
		resp.Errors = append(resp.Errors, fmt.Sprintf("store: %v", err))
	}

	if len(resp.Errors) > 0 {
		resp.Status = "not ready"
		_ = writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	_ = writeJSON(w, http.StatusOK, resp)
}
