// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/logger"
	"github.com/aperturehq/aperture/pkg/store"
)

// sseKeepAliveInterval is how often comment frames go out to hold idle
// connections open through proxies.
const sseKeepAliveInterval = 30 * time.Second

// eventChannel
//
//	@Summary		Stream session events
//	@Description	Deliver session events as server-sent events, starting with a connected sentinel
//	@Tags			sessions
//	@Produce		text/event-stream
//	@Param			id	path	string	true	"Session ID"
//	@Success		200	{string}	string	"Event stream"
//	@Failure		404	{string}	string	"Not Found"
//	@Router			/v1/sessions/{id}/events [get]
func (s *SessionRoutes) eventChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rt, _, err := s.manager.Connect(r.Context(), id)
	if err != nil {
		switch {
		case stderrors.Is(err, store.ErrNotFound):
			http.Error(w, "Session not found", http.StatusNotFound)
		case errors.IsTransition(err):
			http.Error(w, "Session has ended", http.StatusConflict)
		default:
			logger.Errorf("failed to open event stream for session %s: %v", id, err)
			http.Error(w, "Failed to open event stream", http.StatusInternalServerError)
		}
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := rt.Subscribe(true)
	defer unsubscribe()

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: connected\ndata: {\"sessionId\":%q}\n\n", id)
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				// Session ended or this subscriber was dropped.
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Errorf("failed to encode session event: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
