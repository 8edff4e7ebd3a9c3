// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/aperturehq/aperture/pkg/agent"
)

// fakeBackendSession is an in-memory BackendSession with a scriptable event
// feed. Centralized here for reuse across runtime and manager tests.
type fakeBackendSession struct {
	mu       sync.Mutex
	handler  agent.Handler
	status   agent.Status
	calls    []string
	errs     map[string]error
	disposed bool
}

func newFakeBackendSession() *fakeBackendSession {
	return &fakeBackendSession{errs: make(map[string]error)}
}

// failOn scripts an error return for the named operation.
func (f *fakeBackendSession) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

// setStatus replaces the snapshot returned by Status.
func (f *fakeBackendSession) setStatus(st agent.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = st
}

// emit pushes one event through the subscribed handler, mimicking the
// backend's single ordered feed.
func (f *fakeBackendSession) emit(ev agent.Event) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (f *fakeBackendSession) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackendSession) wasDisposed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disposed
}

func (f *fakeBackendSession) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeBackendSession) Prompt(_ context.Context, _ agent.MessageContent, _ *agent.PromptOptions) error {
	return f.record("prompt")
}

func (f *fakeBackendSession) Steer(_ context.Context, _ string) error {
	return f.record("steer")
}

func (f *fakeBackendSession) FollowUp(_ context.Context, _ string) error {
	return f.record("follow_up")
}

func (f *fakeBackendSession) Cancel(context.Context) error {
	return f.record("cancel")
}

func (f *fakeBackendSession) Interrupt(context.Context) error {
	return f.record("interrupt")
}

func (f *fakeBackendSession) SetModel(_ context.Context, model string) error {
	return f.record("set_model:" + model)
}

func (f *fakeBackendSession) SetPermissionMode(_ context.Context, mode string) error {
	return f.record("set_permission_mode:" + mode)
}

func (f *fakeBackendSession) SetMaxThinkingTokens(_ context.Context, tokens int) error {
	return f.record(fmt.Sprintf("set_max_thinking_tokens:%d", tokens))
}

func (f *fakeBackendSession) SetThinkingLevel(_ context.Context, level string) error {
	return f.record("set_thinking_level:" + level)
}

func (f *fakeBackendSession) CycleModel(context.Context) error {
	return f.record("cycle_model")
}

func (f *fakeBackendSession) CycleThinkingLevel(context.Context) error {
	return f.record("cycle_thinking_level")
}

func (f *fakeBackendSession) Compact(_ context.Context, _ string) error {
	return f.record("compact")
}

func (f *fakeBackendSession) Fork(_ context.Context, entryID string) error {
	return f.record("fork:" + entryID)
}

func (f *fakeBackendSession) Navigate(_ context.Context, entryID string) error {
	return f.record("navigate:" + entryID)
}

func (f *fakeBackendSession) NewSession(context.Context) error {
	return f.record("new_session")
}

func (f *fakeBackendSession) RespondToPermission(_ context.Context, toolCallID, optionID string, _ map[string]any) error {
	return f.record(fmt.Sprintf("respond_permission:%s:%s", toolCallID, optionID))
}

func (f *fakeBackendSession) CancelPermission(_ context.Context, toolCallID string) error {
	return f.record("cancel_permission:" + toolCallID)
}

func (f *fakeBackendSession) Request(_ context.Context, op string, _ map[string]any) (any, error) {
	if err := f.record("request:" + op); err != nil {
		return nil, err
	}
	return map[string]any{"op": op}, nil
}

func (f *fakeBackendSession) Subscribe(h agent.Handler) func() {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.handler = nil
		f.mu.Unlock()
	}
}

func (f *fakeBackendSession) Status() agent.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Dispose emits the final exit event before returning, matching the
// BackendSession contract.
func (f *fakeBackendSession) Dispose(context.Context) error {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return nil
	}
	f.disposed = true
	f.mu.Unlock()
	f.emit(agent.Event{Type: agent.EventExit, Reason: "exit"})
	return nil
}
