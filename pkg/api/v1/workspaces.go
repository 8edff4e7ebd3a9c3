// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/aperturehq/aperture/pkg/api/errors"
	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/store"
	"github.com/aperturehq/aperture/pkg/worktree"
)

// WorkspaceRoutes defines the routes for workspace registration and the
// per-session worktree bindings inside them.
type WorkspaceRoutes struct {
	store  store.Store
	broker worktree.Broker
}

// WorkspacesRouter creates a new router for the workspace API.
func WorkspacesRouter(st store.Store, broker worktree.Broker) http.Handler {
	routes := &WorkspaceRoutes{
		store:  st,
		broker: broker,
	}

	r := chi.NewRouter()
	r.Post("/", apierrors.ErrorHandler(routes.createWorkspace))
	r.Get("/", apierrors.ErrorHandler(routes.listWorkspaces))
	r.Get("/{id}", apierrors.ErrorHandler(routes.getWorkspace))
	r.Delete("/{id}", apierrors.ErrorHandler(routes.deleteWorkspace))
	r.Get("/{id}/agents", apierrors.ErrorHandler(routes.listWorkspaceAgents))
	r.Delete("/{id}/agents/{sessionId}", apierrors.ErrorHandler(routes.cleanupWorkspaceAgent))
	return r
}

// CreateWorkspaceRequest registers a repository root for session checkouts.
type CreateWorkspaceRequest struct {
	Name     string `json:"name,omitempty"`
	RepoRoot string `json:"repoRoot"`
}

// WorkspaceResponse is the client view of a workspace. DefaultBranch is
// populated on creation, when the repository was just inspected.
type WorkspaceResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	RepoRoot      string    `json:"repoRoot"`
	DefaultBranch string    `json:"defaultBranch,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// WorkspaceListResponse is the workspace listing payload.
type WorkspaceListResponse struct {
	Workspaces []WorkspaceResponse `json:"workspaces"`
	Total      int                 `json:"total"`
}

// WorkspaceAgentListResponse lists the worktree bindings of a workspace.
type WorkspaceAgentListResponse struct {
	Agents []*store.WorkspaceAgent `json:"agents"`
	Total  int                     `json:"total"`
}

func newWorkspaceResponse(ws *store.Workspace) WorkspaceResponse {
	return WorkspaceResponse{
		ID:        ws.ID,
		Name:      ws.Name,
		RepoRoot:  ws.RepoRoot,
		CreatedAt: ws.CreatedAt,
	}
}

// createWorkspace
//
//	@Summary		Register a workspace
//	@Description	Verify a repository root and register it for session checkouts
//	@Tags			workspaces
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateWorkspaceRequest	true	"Workspace to register"
//	@Success		201		{object}	WorkspaceResponse
//	@Failure		400		{string}	string	"Bad Request"
//	@Router			/v1/workspaces [post]
func (ws *WorkspaceRoutes) createWorkspace(w http.ResponseWriter, r *http.Request) error {
	var req CreateWorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.RepoRoot == "" {
		return errors.NewValidationError("repoRoot is required", nil)
	}

	info, err := ws.broker.EnsureRepoReady(r.Context(), req.RepoRoot)
	if err != nil {
		return err
	}

	workspace := &store.Workspace{
		ID:        uuid.New().String(),
		Name:      req.Name,
		RepoRoot:  req.RepoRoot,
		CreatedAt: time.Now().UTC(),
	}
	if err := ws.store.CreateWorkspace(r.Context(), workspace); err != nil {
		return err
	}

	resp := newWorkspaceResponse(workspace)
	resp.DefaultBranch = info.DefaultBranch
	return writeJSON(w, http.StatusCreated, resp)
}

// listWorkspaces
//
//	@Summary		List workspaces
//	@Tags			workspaces
//	@Produce		json
//	@Success		200	{object}	WorkspaceListResponse
//	@Router			/v1/workspaces [get]
func (ws *WorkspaceRoutes) listWorkspaces(w http.ResponseWriter, r *http.Request) error {
	workspaces, err := ws.store.ListWorkspaces(r.Context())
	if err != nil {
		return err
	}

	resp := WorkspaceListResponse{Workspaces: make([]WorkspaceResponse, 0, len(workspaces))}
	for _, workspace := range workspaces {
		resp.Workspaces = append(resp.Workspaces, newWorkspaceResponse(workspace))
	}
	resp.Total = len(resp.Workspaces)
	return writeJSON(w, http.StatusOK, resp)
}

// getWorkspace
//
//	@Summary		Get workspace
//	@Tags			workspaces
//	@Produce		json
//	@Param			id	path		string	true	"Workspace ID"
//	@Success		200	{object}	WorkspaceResponse
//	@Failure		404	{string}	string	"Not Found"
//	@Router			/v1/workspaces/{id} [get]
func (ws *WorkspaceRoutes) getWorkspace(w http.ResponseWriter, r *http.Request) error {
	workspace, err := ws.store.GetWorkspace(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "Workspace not found", http.StatusNotFound)
			return nil
		}
		return err
	}
	return writeJSON(w, http.StatusOK, newWorkspaceResponse(workspace))
}

// deleteWorkspace
//
//	@Summary		Delete workspace
//	@Description	Remove a workspace registration. Worktrees on disk are kept.
//	@Tags			workspaces
//	@Param			id	path	string	true	"Workspace ID"
//	@Success		204	{string}	string	"No Content"
//	@Failure		404	{string}	string	"Not Found"
//	@Router			/v1/workspaces/{id} [delete]
func (ws *WorkspaceRoutes) deleteWorkspace(w http.ResponseWriter, r *http.Request) error {
	if err := ws.store.DeleteWorkspace(r.Context(), chi.URLParam(r, "id")); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "Workspace not found", http.StatusNotFound)
			return nil
		}
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// listWorkspaceAgents
//
//	@Summary		List workspace bindings
//	@Description	List which sessions hold worktrees inside a workspace
//	@Tags			workspaces
//	@Produce		json
//	@Param			id	path		string	true	"Workspace ID"
//	@Success		200	{object}	WorkspaceAgentListResponse
//	@Failure		404	{string}	string	"Not Found"
//	@Router			/v1/workspaces/{id}/agents [get]
func (ws *WorkspaceRoutes) listWorkspaceAgents(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")

	if _, err := ws.store.GetWorkspace(r.Context(), id); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "Workspace not found", http.StatusNotFound)
			return nil
		}
		return err
	}

	agents, err := ws.store.ListWorkspaceAgents(r.Context(), id)
	if err != nil {
		return err
	}
	if agents == nil {
		agents = []*store.WorkspaceAgent{}
	}
	return writeJSON(w, http.StatusOK, WorkspaceAgentListResponse{
		Agents: agents,
		Total:  len(agents),
	})
}

// cleanupWorkspaceAgent
//
//	@Summary		Clean up a workspace binding
//	@Description	Remove a session's worktree from disk and drop its binding
//	@Tags			workspaces
//	@Param			id			path	string	true	"Workspace ID"
//	@Param			sessionId	path	string	true	"Session ID"
//	@Success		204	{string}	string	"No Content"
//	@Failure		404	{string}	string	"Not Found"
//	@Router			/v1/workspaces/{id}/agents/{sessionId} [delete]
func (ws *WorkspaceRoutes) cleanupWorkspaceAgent(w http.ResponseWriter, r *http.Request) error {
	workspaceID := chi.URLParam(r, "id")
	sessionID := chi.URLParam(r, "sessionId")

	workspace, err := ws.store.GetWorkspace(r.Context(), workspaceID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "Workspace not found", http.StatusNotFound)
			return nil
		}
		return err
	}

	binding, err := ws.store.GetWorkspaceAgent(r.Context(), workspaceID, sessionID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "Binding not found", http.StatusNotFound)
			return nil
		}
		return err
	}

	if err := ws.broker.Remove(r.Context(), workspace.RepoRoot, binding.Branch); err != nil {
		return err
	}
	if err := ws.store.UnbindWorkspaceAgent(r.Context(), workspaceID, sessionID); err != nil && !stderrors.Is(err, store.ErrNotFound) {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
