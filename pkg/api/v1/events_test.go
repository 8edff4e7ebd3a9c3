// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aperturehq/aperture/pkg/agent"
)

// openEventStream starts a live SSE request against the session's event
// channel and returns a line reader over the stream.
func openEventStream(t *testing.T, env *sessionEnv, sessionID string) *bufio.Reader {
	t.Helper()

	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/v1/sessions/"+sessionID+"/events", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	return bufio.NewReader(resp.Body)
}

// readEventLine returns the next non-blank stream line.
func readEventLine(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
}

func TestEventChannelStream(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)

	created, stub := env.createSession(t)
	reader := openEventStream(t, env, created.ID)

	assert.Equal(t, "event: connected\n", readEventLine(t, reader))
	sentinel := readEventLine(t, reader)
	assert.True(t, strings.HasPrefix(sentinel, "data: "))
	assert.Contains(t, sentinel, created.ID)

	replay := readEventLine(t, reader)
	assert.Contains(t, replay, `"type":"replay"`)

	stub.emit(agent.Event{Type: agent.EventMessageChunk, Delta: "hel"})

	chunk := readEventLine(t, reader)
	assert.Contains(t, chunk, `"type":"message_chunk"`)
	assert.Contains(t, chunk, `"delta":"hel"`)
}

func TestEventChannelSessionEnd(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)

	created, _ := env.createSession(t)
	reader := openEventStream(t, env, created.ID)

	readEventLine(t, reader) // event: connected
	readEventLine(t, reader) // sentinel data
	readEventLine(t, reader) // replay snapshot

	require.NoError(t, env.manager.Terminate(t.Context(), created.ID))

	// The final exit event is delivered, then the stream closes.
	var sawExit bool
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		if strings.Contains(line, `"type":"exit"`) {
			sawExit = true
		}
	}
	assert.True(t, sawExit)
}

func TestEventChannelUnknownSession(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/sessions/"+uuid.NewString()+"/events", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Session not found")
}

func TestEventChannelEndedSession(t *testing.T) {
	t.Parallel()
	env := newSessionEnv(t)

	created, _ := env.createSession(t)
	require.NoError(t, env.manager.Terminate(t.Context(), created.ID))

	rec := env.do(t, http.MethodGet, "/v1/sessions/"+created.ID+"/events", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Session has ended")
}
