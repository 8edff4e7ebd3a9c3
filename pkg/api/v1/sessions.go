// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/aperturehq/aperture/pkg/api/errors"
	"github.com/aperturehq/aperture/pkg/config"
	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/session"
	"github.com/aperturehq/aperture/pkg/store"
	"github.com/aperturehq/aperture/pkg/telemetry"
)

// SessionRoutes defines the routes for session lifecycle, history and the
// per-session stream channels.
type SessionRoutes struct {
	manager *session.Manager
	store   store.Store
	cfg     *config.Config
	metrics *telemetry.Metrics
}

// SessionsRouter creates a new router for the session API.
func SessionsRouter(
	manager *session.Manager,
	st store.Store,
	cfg *config.Config,
	metrics *telemetry.Metrics,
) http.Handler {
	routes := &SessionRoutes{
		manager: manager,
		store:   st,
		cfg:     cfg,
		metrics: metrics,
	}

	r := chi.NewRouter()

	// Request/response endpoints are bounded; the stream endpoints below
	// hold their connection open for the life of the session and must not
	// inherit a request deadline.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Post("/", apierrors.ErrorHandler(routes.createSession))
		r.Get("/", apierrors.ErrorHandler(routes.listSessions))
		r.Get("/resumable", apierrors.ErrorHandler(routes.listResumableSessions))
		r.Get("/{id}", apierrors.ErrorHandler(routes.getSession))
		r.Delete("/{id}", apierrors.ErrorHandler(routes.deleteSession))
		r.Post("/{id}/connect", apierrors.ErrorHandler(routes.connectSession))
		r.Get("/{id}/messages", apierrors.ErrorHandler(routes.listMessages))
	})

	r.Get("/{id}/ws", routes.frameChannel)
	r.Get("/{id}/events", routes.eventChannel)

	return r
}

// SessionResponse is the client view of a session record.
type SessionResponse struct {
	ID               string     `json:"id"`
	Agent            string     `json:"agent"`
	Status           string     `json:"status"`
	WorkspaceID      string     `json:"workspaceId,omitempty"`
	WorktreePath     string     `json:"worktreePath,omitempty"`
	BackendSessionID string     `json:"backendSessionId,omitempty"`
	Model            string     `json:"model,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	LastActivityAt   time.Time  `json:"lastActivityAt"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
	EndedReason      string     `json:"endedReason,omitempty"`
	Resumable        bool       `json:"resumable"`
}

// SessionListResponse is the paginated session listing payload.
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int               `json:"total"`
}

// ConnectResponse reports the session state after a connect, and whether a
// cold runtime had to be restored to serve it.
type ConnectResponse struct {
	SessionResponse
	Restored bool `json:"restored"`
}

// MessageListResponse is the persisted conversation history payload.
type MessageListResponse struct {
	Messages []*store.Message `json:"messages"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

func newSessionResponse(s *store.Session) SessionResponse {
	return SessionResponse{
		ID:               s.ID,
		Agent:            s.Agent.String(),
		Status:           s.Status,
		WorkspaceID:      s.WorkspaceID,
		WorktreePath:     s.WorktreePath,
		BackendSessionID: s.BackendSessionID,
		Model:            s.Model,
		CreatedAt:        s.CreatedAt,
		LastActivityAt:   s.LastActivityAt,
		EndedAt:          s.EndedAt,
		EndedReason:      s.EndedReason,
		Resumable:        s.Resumable(),
	}
}

func newSessionListResponse(sessions []*store.Session) SessionListResponse {
	resp := SessionListResponse{Sessions: make([]SessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, newSessionResponse(s))
	}
	resp.Total = len(resp.Sessions)
	return resp
}

// createSession
//
//	@Summary		Create a new session
//	@Description	Admit and start a new agent session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		session.CreateOptions	true	"Create session request"
//	@Success		201		{object}	SessionResponse
//	@Failure		400		{string}	string	"Bad Request"
//	@Failure		429		{string}	string	"Too Many Requests"
//	@Router			/v1/sessions [post]
func (s *SessionRoutes) createSession(w http.ResponseWriter, r *http.Request) error {
	var opts session.CreateOptions
	if err := decodeJSON(r, &opts); err != nil {
		return err
	}

	sess, err := s.manager.Create(r.Context(), opts)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

// listSessions
//
//	@Summary		List sessions
//	@Description	List live sessions, or filter by status with ?status=
//	@Tags			sessions
//	@Produce		json
//	@Param			status	query		string	false	"Status filter (active|idle|ended|all)"
//	@Success		200		{object}	SessionListResponse
//	@Failure		400		{string}	string	"Bad Request"
//	@Router			/v1/sessions [get]
func (s *SessionRoutes) listSessions(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var (
		sessions []*store.Session
		err      error
	)
	switch status := r.URL.Query().Get("status"); status {
	case "":
		sessions, err = s.store.ListActive(ctx)
	case "all":
		sessions, err = s.store.ListSessions(ctx, "")
	case store.StatusActive, store.StatusIdle, store.StatusEnded:
		sessions, err = s.store.ListSessions(ctx, status)
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown status filter %q", status), nil)
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newSessionListResponse(sessions))
}

// listResumableSessions
//
//	@Summary		List resumable sessions
//	@Description	List ended sessions that can still be reconnected to
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	SessionListResponse
//	@Router			/v1/sessions/resumable [get]
func (s *SessionRoutes) listResumableSessions(w http.ResponseWriter, r *http.Request) error {
	sessions, err := s.store.ListResumable(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newSessionListResponse(sessions))
}

// getSession
//
//	@Summary		Get session
//	@Description	Get the status snapshot of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{string}	string	"Not Found"
//	@Router			/v1/sessions/{id} [get]
func (s *SessionRoutes) getSession(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")

	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return nil
		}
		return err
	}
	return writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// deleteSession
//
//	@Summary		Terminate session
//	@Description	Terminate a session and release its runtime
//	@Tags			sessions
//	@Param			id	path	string	true	"Session ID"
//	@Success		204	{string}	string	"No Content"
//	@Failure		404	{string}	string	"Not Found"
//	@Router			/v1/sessions/{id} [delete]
func (s *SessionRoutes) deleteSession(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")

	if err := s.manager.Terminate(r.Context(), id); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return nil
		}
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// connectSession
//
//	@Summary		Connect to a session
//	@Description	Return the session state, lazily restoring a resumable runtime
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	ConnectResponse
//	@Failure		404	{string}	string	"Not Found"
//	@Failure		409	{string}	string	"Conflict"
//	@Router			/v1/sessions/{id}/connect [post]
func (s *SessionRoutes) connectSession(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")

	_, restored, err := s.manager.Connect(r.Context(), id)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return nil
		}
		return err
	}

	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, ConnectResponse{
		SessionResponse: newSessionResponse(sess),
		Restored:        restored,
	})
}

// listMessages
//
//	@Summary		Get conversation history
//	@Description	List the persisted messages of a session in chronological order
//	@Tags			sessions
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			limit	query		int		false	"Maximum messages to return"
//	@Param			offset	query		int		false	"Messages to skip from the start"
//	@Success		200		{object}	MessageListResponse
//	@Failure		404		{string}	string	"Not Found"
//	@Router			/v1/sessions/{id}/messages [get]
func (s *SessionRoutes) listMessages(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetSession(ctx, id); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return nil
		}
		return err
	}

	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		return err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return err
	}

	messages, err := s.store.ListMessages(ctx, id, limit, offset)
	if err != nil {
		return err
	}
	total, err := s.store.CountMessages(ctx, id)
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []*store.Message{}
	}
	return writeJSON(w, http.StatusOK, MessageListResponse{
		Messages: messages,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationError(fmt.Sprintf("invalid %s value %q", key, raw), err)
	}
	return v, nil
}
