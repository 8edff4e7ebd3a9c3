// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/agent/mocks"
	"github.com/aperturehq/aperture/pkg/config"
	"github.com/aperturehq/aperture/pkg/session"
	"github.com/aperturehq/aperture/pkg/store"
	"github.com/aperturehq/aperture/pkg/store/sqlite"
	"github.com/aperturehq/aperture/pkg/worktree"
)

// sessionEnv wires the session routes to a real manager and store with a
// mocked backend behind them.
type sessionEnv struct {
	backend *mocks.MockBackend
	manager *session.Manager
	store   store.Store
	cfg     *config.Config
	router  http.Handler
}

func newSessionEnv(t *testing.T) *sessionEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	backend.EXPECT().Kind().Return(agent.KindClaude).AnyTimes()
	backend.EXPECT().Name().Return("Claude Agent SDK").AnyTimes()

	registry := agent.NewRegistry()
	registry.Register(backend)

	st, err := sqlite.New(t.Context(), filepath.Join(t.TempDir(), "v1-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{
		MaxConcurrentSessions: 4,
		SessionIdleTimeout:    time.Minute,
		RPCRequestTimeout:     5 * time.Second,
		MaxMessageSizeBytes:   2048,
	}

	manager := session.NewManager(session.ManagerOptions{
		Config:   cfg,
		Store:    st,
		Registry: registry,
		Broker:   worktree.NewBroker(nil),
	})

	r := chi.NewRouter()
	r.Mount("/v1/sessions", SessionsRouter(manager, st, cfg, nil))

	return &sessionEnv{
		backend: backend,
		manager: manager,
		store:   st,
		cfg:     cfg,
		router:  r,
	}
}

// do serves one request against the route table and returns the recorder.
func (e *sessionEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, e.router, method, target, body)
}

// doRequest serves one JSON request against h and returns the recorder.
func doRequest(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// createSession scripts one successful admission and returns the created
// session view along with the stub the runtime now drives.
func (e *sessionEnv) createSession(t *testing.T) (SessionResponse, *stubBackendSession) {
	t.Helper()

	stub := newStubBackendSession()
	stub.setStatus(agent.Status{BackendSessionID: "bs-" + t.Name(), Model: "claude-sonnet-4-5"})
	e.backend.EXPECT().ValidateAuth(gomock.Any(), gomock.Any()).Return(nil)
	e.backend.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any()).Return(stub, nil)

	rec := e.do(t, http.MethodPost, "/v1/sessions", map[string]any{
		"agent": "claude_sdk",
		"auth":  map[string]any{"mode": "oauth"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp, stub
}

// decodeBody unmarshals the recorded response body into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// stubBackendSession is an in-memory BackendSession with a scriptable event
// feed, mirroring what the runtime sees from a real SDK process.
type stubBackendSession struct {
	mu       sync.Mutex
	handler  agent.Handler
	status   agent.Status
	calls    []string
	errs     map[string]error
	disposed bool
}

func newStubBackendSession() *stubBackendSession {
	return &stubBackendSession{errs: make(map[string]error)}
}

func (s *stubBackendSession) setStatus(st agent.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

func (s *stubBackendSession) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op] = err
}

// emit pushes one event through the subscribed handler.
func (s *stubBackendSession) emit(ev agent.Event) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (s *stubBackendSession) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubBackendSession) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	return s.errs[op]
}

func (s *stubBackendSession) Prompt(_ context.Context, _ agent.MessageContent, _ *agent.PromptOptions) error {
	return s.record("prompt")
}

func (s *stubBackendSession) Steer(_ context.Context, _ string) error { return s.record("steer") }

func (s *stubBackendSession) FollowUp(_ context.Context, _ string) error {
	return s.record("follow_up")
}

func (s *stubBackendSession) Cancel(context.Context) error    { return s.record("cancel") }
func (s *stubBackendSession) Interrupt(context.Context) error { return s.record("interrupt") }

func (s *stubBackendSession) SetModel(_ context.Context, model string) error {
	return s.record("set_model:" + model)
}

func (s *stubBackendSession) SetPermissionMode(_ context.Context, mode string) error {
	return s.record("set_permission_mode:" + mode)
}

func (s *stubBackendSession) SetMaxThinkingTokens(_ context.Context, _ int) error {
	return s.record("set_max_thinking_tokens")
}

func (s *stubBackendSession) SetThinkingLevel(_ context.Context, level string) error {
	return s.record("set_thinking_level:" + level)
}

func (s *stubBackendSession) CycleModel(context.Context) error { return s.record("cycle_model") }

func (s *stubBackendSession) CycleThinkingLevel(context.Context) error {
	return s.record("cycle_thinking_level")
}

func (s *stubBackendSession) Compact(_ context.Context, _ string) error { return s.record("compact") }

func (s *stubBackendSession) Fork(_ context.Context, entryID string) error {
	return s.record("fork:" + entryID)
}

func (s *stubBackendSession) Navigate(_ context.Context, entryID string) error {
	return s.record("navigate:" + entryID)
}

func (s *stubBackendSession) NewSession(context.Context) error { return s.record("new_session") }

func (s *stubBackendSession) RespondToPermission(_ context.Context, toolCallID, optionID string, _ map[string]any) error {
	return s.record("respond_permission:" + toolCallID + ":" + optionID)
}

func (s *stubBackendSession) CancelPermission(_ context.Context, toolCallID string) error {
	return s.record("cancel_permission:" + toolCallID)
}

func (s *stubBackendSession) Request(_ context.Context, op string, _ map[string]any) (any, error) {
	if err := s.record("request:" + op); err != nil {
		return nil, err
	}
	return map[string]any{"op": op}, nil
}

func (s *stubBackendSession) Subscribe(h agent.Handler) func() {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.handler = nil
		s.mu.Unlock()
	}
}

func (s *stubBackendSession) Status() agent.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Dispose emits the final exit event before returning, per the
// BackendSession contract.
func (s *stubBackendSession) Dispose(context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	s.mu.Unlock()
	s.emit(agent.Event{Type: agent.EventExit, Reason: "exit"})
	return nil
}
