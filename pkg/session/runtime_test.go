// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/store"
	"github.com/aperturehq/aperture/pkg/store/sqlite"
)

const testSessionID = "sess-rt"

// newRuntimeEnv builds a runtime over a fake backend and a real store with
// the session row already persisted.
func newRuntimeEnv(t *testing.T, kind agent.Kind, idleTimeout time.Duration) (*Runtime, *fakeBackendSession, store.Store) {
	t.Helper()

	st, err := sqlite.New(t.Context(), filepath.Join(t.TempDir(), "runtime-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.SaveSession(t.Context(), &store.Session{
		ID:     testSessionID,
		Agent:  kind,
		Status: store.StatusActive,
		Auth:   agent.SessionAuth{Mode: agent.AuthModeOAuth},
	}))

	fake := newFakeBackendSession()
	rt := NewRuntime(RuntimeConfig{
		SessionID:   testSessionID,
		Kind:        kind,
		Backend:     fake,
		Store:       st,
		IdleTimeout: idleTimeout,
		RPCTimeout:  5 * time.Second,
	})
	return rt, fake, st
}

// waitEvent reads from ch until an event of the wanted type arrives,
// skipping interleaved status snapshots and chunks.
func waitEvent(t *testing.T, ch <-chan agent.Event, want string) agent.Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			require.True(t, ok, "channel closed while waiting for %s event", want)
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

// waitClosed drains ch until it closes.
func waitClosed(t *testing.T, ch <-chan agent.Event) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for channel close")
		}
	}
}

func TestRuntimeLifecycleStates(t *testing.T) {
	t.Parallel()
	rt, fake, _ := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	ctx := t.Context()

	assert.Equal(t, StateInit, rt.State())
	require.NoError(t, rt.Start(ctx))
	assert.Equal(t, StateIdle, rt.State())

	// Streaming-only commands are rejected while idle.
	err := rt.Steer(ctx, "stop")
	require.Error(t, err)
	assert.True(t, errors.IsTransition(err))
	err = rt.Interrupt(ctx)
	assert.True(t, errors.IsTransition(err))

	require.NoError(t, rt.SendPrompt(ctx, agent.Text("hello"), nil))
	assert.Equal(t, StateStreaming, rt.State())
	assert.Contains(t, fake.callLog(), "prompt")

	// A second prompt mid-turn is rejected, not queued.
	err = rt.SendPrompt(ctx, agent.Text("again"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransition(err))

	// Steering and follow-ups are legal now.
	require.NoError(t, rt.Steer(ctx, "look at the tests instead"))
	require.NoError(t, rt.FollowUp(ctx, "and update the changelog"))

	fake.emit(agent.Event{Type: agent.EventPromptComplete})
	assert.Equal(t, StateIdle, rt.State())
}

func TestRuntimeStartTwice(t *testing.T) {
	t.Parallel()
	rt, _, _ := newRuntimeEnv(t, agent.KindClaude, time.Minute)

	require.NoError(t, rt.Start(t.Context()))
	err := rt.Start(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsTransition(err))
}

func TestRuntimePromptBackendFailure(t *testing.T) {
	t.Parallel()
	rt, fake, _ := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	ctx := t.Context()
	require.NoError(t, rt.Start(ctx))

	fake.failOn("prompt", assert.AnError)
	err := rt.SendPrompt(ctx, agent.Text("hello"), nil)
	require.ErrorIs(t, err, assert.AnError)

	// The turn never started, so the session stays idle and accepts input.
	assert.Equal(t, StateIdle, rt.State())
}

func TestRuntimePermissionFlow(t *testing.T) {
	t.Parallel()
	rt, fake, _ := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	ctx := t.Context()
	require.NoError(t, rt.Start(ctx))
	require.NoError(t, rt.SendPrompt(ctx, agent.Text("run the tests"), nil))

	fake.emit(agent.Event{
		Type:       agent.EventPermissionRequest,
		ToolCallID: "tc-1",
		Permission: &agent.PermissionRequest{
			ToolCallID: "tc-1",
			ToolName:   "bash",
			Options:    []agent.PermissionOption{{OptionID: "allow"}, {OptionID: "deny"}},
		},
	})
	assert.Equal(t, StateAwaitingPermission, rt.State())

	// Configuration changes are idle-only and must not sneak in while a
	// human decision is pending.
	err := rt.SetModel(ctx, "claude-opus-4-5")
	require.Error(t, err)
	assert.True(t, errors.IsTransition(err))

	require.NoError(t, rt.RespondToPermission(ctx, "tc-1", "allow", nil))
	assert.Contains(t, fake.callLog(), "respond_permission:tc-1:allow")

	fake.emit(agent.Event{Type: agent.EventPermissionResolved, ToolCallID: "tc-1", OptionID: "allow"})
	assert.Equal(t, StateStreaming, rt.State())

	fake.emit(agent.Event{Type: agent.EventPromptComplete})
	assert.Equal(t, StateIdle, rt.State())
}

func TestRuntimeCancelPermissionRequiresPending(t *testing.T) {
	t.Parallel()
	rt, fake, _ := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	ctx := t.Context()
	require.NoError(t, rt.Start(ctx))

	err := rt.CancelPermission(ctx, "tc-1")
	require.Error(t, err)
	assert.True(t, errors.IsTransition(err))

	require.NoError(t, rt.SendPrompt(ctx, agent.Text("go"), nil))
	fake.emit(agent.Event{
		Type:       agent.EventPermissionRequest,
		ToolCallID: "tc-1",
		Permission: &agent.PermissionRequest{ToolCallID: "tc-1"},
	})
	require.NoError(t, rt.CancelPermission(ctx, "tc-1"))
	assert.Contains(t, fake.callLog(), "cancel_permission:tc-1")
}

func TestRuntimeTreeOpsByKind(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	// Claude rejects tree operations mid-turn.
	claudeRT, claudeFake, _ := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	require.NoError(t, claudeRT.Start(ctx))
	require.NoError(t, claudeRT.SendPrompt(ctx, agent.Text("hi"), nil))
	err := claudeRT.Fork(ctx, "entry-3")
	require.Error(t, err)
	assert.True(t, errors.IsTransition(err))
	claudeFake.emit(agent.Event{Type: agent.EventPromptComplete})
	require.NoError(t, claudeRT.Fork(ctx, "entry-3"))
	assert.Contains(t, claudeFake.callLog(), "fork:entry-3")

	// Pi exposes its tree during a turn as well.
	piRT, piFake, _ := newRuntimeEnv(t, agent.KindPi, time.Minute)
	require.NoError(t, piRT.Start(ctx))
	require.NoError(t, piRT.SendPrompt(ctx, agent.Text("hi"), nil))
	require.NoError(t, piRT.Fork(ctx, "entry-7"))
	require.NoError(t, piRT.Navigate(ctx, "entry-2"))
	require.NoError(t, piRT.Compact(ctx, "keep decisions"))
	require.NoError(t, piRT.NewConversation(ctx))
	assert.Contains(t, piFake.callLog(), "fork:entry-7")
	assert.Contains(t, piFake.callLog(), "navigate:entry-2")
	assert.Contains(t, piFake.callLog(), "compact")
	assert.Contains(t, piFake.callLog(), "new_session")
}

func TestRuntimeSubscribeReplay(t *testing.T) {
	t.Parallel()
	rt, fake, _ := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	ctx := t.Context()

	fake.setStatus(agent.Status{Model: "claude-sonnet-4-5", BackendSessionID: "bs-1"})
	require.NoError(t, rt.Start(ctx))
	require.NoError(t, rt.SendPrompt(ctx, agent.Text("hi"), nil))
	fake.emit(agent.Event{
		Type:       agent.EventPermissionRequest,
		ToolCallID: "tc-9",
		Permission: &agent.PermissionRequest{ToolCallID: "tc-9", ToolName: "write_file"},
	})

	ch, unsubscribe := rt.Subscribe(true)
	defer unsubscribe()

	first := <-ch
	assert.Equal(t, agent.EventReplay, first.Type)
	require.NotNil(t, first.Status)
	assert.Equal(t, "claude-sonnet-4-5", first.Status.Model)
	assert.Equal(t, "bs-1", first.BackendSessionID)

	second := <-ch
	assert.Equal(t, agent.EventPermissionRequest, second.Type)
	assert.Equal(t, "tc-9", second.ToolCallID)
	require.NotNil(t, second.Permission)
	assert.Equal(t, "write_file", second.Permission.ToolName)
}

func TestRuntimeSubscribeWithoutReplay(t *testing.T) {
	t.Parallel()
	rt, fake, _ := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	require.NoError(t, rt.Start(t.Context()))

	ch, unsubscribe := rt.Subscribe(false)
	defer unsubscribe()

	fake.emit(agent.Event{Type: agent.EventMessageChunk, Delta: "hel"})
	ev := waitEvent(t, ch, agent.EventMessageChunk)
	assert.Equal(t, "hel", ev.Delta)
}

func TestRuntimeSlowSubscriberDropped(t *testing.T) {
	t.Parallel()
	rt, fake, _ := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	require.NoError(t, rt.Start(t.Context()))

	slow, _ := rt.Subscribe(false)
	for i := 0; i < subscriberBuffer; i++ {
		fake.emit(agent.Event{Type: agent.EventMessageChunk, Delta: "x"})
	}

	// A fresh subscriber has headroom; the next event overflows only the
	// stalled one.
	healthy, unsubscribe := rt.Subscribe(false)
	defer unsubscribe()
	fake.emit(agent.Event{Type: agent.EventMessageChunk, Delta: "y"})

	got := waitEvent(t, healthy, agent.EventMessageChunk)
	assert.Equal(t, "y", got.Delta)
	notice := waitEvent(t, healthy, agent.EventSubscriberDropped)
	assert.Equal(t, "subscriber buffer overflow", notice.Reason)

	// The stalled channel still holds its buffered events, then closes.
	for i := 0; i < subscriberBuffer; i++ {
		_, ok := <-slow
		require.True(t, ok)
	}
	_, ok := <-slow
	assert.False(t, ok, "dropped subscriber channel should be closed")
}

func TestRuntimeIdleTimeout(t *testing.T) {
	t.Parallel()
	rt, fake, st := newRuntimeEnv(t, agent.KindClaude, 75*time.Millisecond)
	require.NoError(t, rt.Start(t.Context()))

	ch, unsubscribe := rt.Subscribe(false)
	defer unsubscribe()

	idle := waitEvent(t, ch, agent.EventIdle)
	assert.Equal(t, store.ReasonIdleTimeout, idle.Reason)
	waitEvent(t, ch, agent.EventExit)
	waitClosed(t, ch)

	assert.True(t, fake.wasDisposed())
	assert.Equal(t, StateEnded, rt.State())

	sess, err := st.GetSession(t.Context(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnded, sess.Status)
	assert.Equal(t, store.ReasonIdleTimeout, sess.EndedReason)
}

func TestRuntimeIdleTimerPausesDuringPermission(t *testing.T) {
	t.Parallel()
	rt, fake, st := newRuntimeEnv(t, agent.KindClaude, 75*time.Millisecond)
	ctx := t.Context()
	require.NoError(t, rt.Start(ctx))
	require.NoError(t, rt.SendPrompt(ctx, agent.Text("hi"), nil))

	fake.emit(agent.Event{
		Type:       agent.EventPermissionRequest,
		ToolCallID: "tc-1",
		Permission: &agent.PermissionRequest{ToolCallID: "tc-1"},
	})

	// Well past the idle timeout, the session must still be waiting.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, StateAwaitingPermission, rt.State())

	sess, err := st.GetSession(ctx, testSessionID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusActive, sess.Status)
}

func TestRuntimeTerminate(t *testing.T) {
	t.Parallel()
	rt, fake, st := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	ctx := t.Context()
	require.NoError(t, rt.Start(ctx))

	ch, unsubscribe := rt.Subscribe(false)
	defer unsubscribe()

	require.NoError(t, rt.Terminate(ctx))
	waitEvent(t, ch, agent.EventExit)
	waitClosed(t, ch)

	assert.True(t, fake.wasDisposed())
	assert.Equal(t, StateEnded, rt.State())

	sess, err := st.GetSession(ctx, testSessionID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnded, sess.Status)
	assert.Equal(t, store.ReasonTerminated, sess.EndedReason)
	assert.False(t, sess.Resumable(), "terminated sessions must not resume")

	// Idempotent: the second terminate is a quiet no-op.
	require.NoError(t, rt.Terminate(ctx))

	err = rt.SendPrompt(ctx, agent.Text("hello?"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransition(err))
}

func TestRuntimeShutdownKeepsResumable(t *testing.T) {
	t.Parallel()
	rt, fake, st := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	ctx := t.Context()

	fake.setStatus(agent.Status{BackendSessionID: "bs-42"})
	require.NoError(t, rt.Start(ctx))
	require.NoError(t, rt.Shutdown(ctx))

	sess, err := st.GetSession(ctx, testSessionID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusEnded, sess.Status)
	assert.Equal(t, store.ReasonServerRestart, sess.EndedReason)
	assert.Equal(t, "bs-42", sess.BackendSessionID)
	assert.True(t, sess.Resumable(), "restart-demoted sessions stay resumable")
}

func TestRuntimeBackendSessionIDSetOnce(t *testing.T) {
	t.Parallel()
	rt, fake, st := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	ctx := t.Context()
	require.NoError(t, rt.Start(ctx))

	fake.emit(agent.Event{Type: agent.EventStatus, BackendSessionID: "bs-first"})
	fake.emit(agent.Event{Type: agent.EventStatus, BackendSessionID: "bs-second"})

	sess, err := st.GetSession(ctx, testSessionID)
	require.NoError(t, err)
	assert.Equal(t, "bs-first", sess.BackendSessionID)
}

func TestRuntimePersistsConversation(t *testing.T) {
	t.Parallel()
	rt, fake, st := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	ctx := t.Context()
	require.NoError(t, rt.Start(ctx))

	require.NoError(t, rt.SendPrompt(ctx, agent.Text("hello"), nil))
	fake.emit(agent.Event{
		Type:    agent.EventMessage,
		Role:    store.RoleAssistant,
		Content: &agent.MessageContent{Text: "hi there"},
	})
	fake.emit(agent.Event{Type: agent.EventPromptComplete})

	msgs, err := st.ListMessages(ctx, testSessionID, 0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, store.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content.Text)
	assert.Equal(t, store.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hi there", msgs[1].Content.Text)

	events, err := st.ListEvents(ctx, testSessionID, 0)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, agent.EventMessage)
	assert.Contains(t, types, agent.EventPromptComplete)
}

func TestRuntimeChunksAreLiveOnly(t *testing.T) {
	t.Parallel()
	rt, fake, st := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	ctx := t.Context()
	require.NoError(t, rt.Start(ctx))

	fake.emit(agent.Event{Type: agent.EventMessageChunk, Delta: "h"})
	fake.emit(agent.Event{Type: agent.EventThinkingChunk, Delta: "m"})

	events, err := st.ListEvents(ctx, testSessionID, 0)
	require.NoError(t, err)
	assert.Empty(t, events, "chunk events must not reach the audit log")
}

func TestRuntimeRequestPassthrough(t *testing.T) {
	t.Parallel()
	rt, fake, _ := newRuntimeEnv(t, agent.KindClaude, time.Minute)
	ctx := t.Context()
	require.NoError(t, rt.Start(ctx))

	reply, err := rt.Request(ctx, "get_account_info", map[string]any{"verbose": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"op": "get_account_info"}, reply)
	assert.Contains(t, fake.callLog(), "request:get_account_info")

	require.NoError(t, rt.Terminate(ctx))
	_, err = rt.Request(ctx, "get_account_info", nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransition(err))
}
