// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package session hosts the per-session state machine and the manager that
// admits, restores and disposes sessions. The runtime sits between the HTTP
// surface and a backend: it validates commands against the session state,
// persists the durable trail, and fans events out to subscribers.
package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/logger"
	"github.com/aperturehq/aperture/pkg/store"
	"github.com/aperturehq/aperture/pkg/telemetry"
)

// State is the live position of a session in its lifecycle. The persisted
// status column is coarser (active, idle, ended); these states exist only in
// memory and gate which commands a session accepts.
type State string

// Session states.
const (
	StateInit               State = "init"
	StateIdle               State = "idle"
	StateStreaming          State = "streaming"
	StateAwaitingPermission State = "awaiting_permission"
	StateEnded              State = "ended"
)

const (
	// subscriberBuffer is the per-subscriber event channel capacity. A
	// subscriber that falls this far behind is dropped.
	subscriberBuffer = 64

	// persistTimeout bounds store writes made on the event path. The event
	// loop must not stall behind a wedged disk.
	persistTimeout = 5 * time.Second

	// disposeTimeout bounds the backend teardown started by the idle timer.
	disposeTimeout = 30 * time.Second
)

// RuntimeConfig wires one runtime to its backend session and the store.
type RuntimeConfig struct {
	SessionID   string
	Kind        agent.Kind
	Backend     agent.BackendSession
	Store       store.Store
	Metrics     *telemetry.Metrics
	IdleTimeout time.Duration
	RPCTimeout  time.Duration

	// OnEnded runs exactly once after the exit event has been fanned out and
	// the end reason persisted. The manager uses it to release its slot.
	OnEnded func(sessionID string)
}

type subscriber struct {
	id int
	ch chan agent.Event
}

// Runtime owns one live session. All state transitions funnel through its
// mutex; backend events arrive on a single goroutine per the BackendSession
// contract, so persistence on that path needs no extra ordering.
type Runtime struct {
	sessionID string
	kind      agent.Kind
	backend   agent.BackendSession
	store     store.Store
	metrics   *telemetry.Metrics

	idleTimeout time.Duration
	rpcTimeout  time.Duration
	onEnded     func(string)

	mu           sync.Mutex
	state        State
	closing      bool
	endReason    string
	backendIDSet bool
	pendingPerms map[string]*agent.PermissionRequest
	subs         map[int]*subscriber
	nextSub      int
	idleTimer    *time.Timer

	unsubscribe func()
	endOnce     sync.Once
}

// NewRuntime builds a runtime in StateInit. Call Start to attach it to the
// backend feed.
func NewRuntime(cfg RuntimeConfig) *Runtime {
	return &Runtime{
		sessionID:    cfg.SessionID,
		kind:         cfg.Kind,
		backend:      cfg.Backend,
		store:        cfg.Store,
		metrics:      cfg.Metrics,
		idleTimeout:  cfg.IdleTimeout,
		rpcTimeout:   cfg.RPCTimeout,
		onEnded:      cfg.OnEnded,
		state:        StateInit,
		pendingPerms: make(map[string]*agent.PermissionRequest),
		subs:         make(map[int]*subscriber),
	}
}

// SessionID returns the gateway session id.
func (r *Runtime) SessionID() string { return r.sessionID }

// Kind returns the backend kind this runtime fronts.
func (r *Runtime) Kind() agent.Kind { return r.kind }

// State returns the current machine state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns the backend's point-in-time snapshot.
func (r *Runtime) Status() agent.Status {
	return r.backend.Status()
}

// Start subscribes to the backend feed, arms the idle timer and moves the
// session to idle so it can accept input.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateInit {
		s := r.state
		r.mu.Unlock()
		return errors.NewTransitionError(fmt.Sprintf("cannot start a session in state %q", s), nil)
	}
	r.state = StateIdle
	r.mu.Unlock()

	r.unsubscribe = r.backend.Subscribe(r.handleBackendEvent)

	// The backend may have reported its session id before the subscription
	// attached; pick it up from the snapshot.
	if st := r.backend.Status(); st.BackendSessionID != "" {
		r.saveBackendID(ctx, st.BackendSessionID)
	}

	r.mu.Lock()
	r.idleTimer = time.AfterFunc(r.idleTimeout, r.onIdleExpired)
	ev := r.statusEventLocked()
	r.fanOutLocked(ev)
	r.mu.Unlock()
	return nil
}

// Subscribe attaches an event channel. With replay, the current status
// snapshot and any pending permission requests are queued ahead of live
// events so a reconnecting client can rebuild its view without a gap. The
// returned channel closes when the subscriber unsubscribes, falls behind,
// or the session ends.
func (r *Runtime) Subscribe(replay bool) (<-chan agent.Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := &subscriber{id: r.nextSub, ch: make(chan agent.Event, subscriberBuffer)}
	r.nextSub++

	if replay {
		for _, ev := range r.replayEventsLocked() {
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}

	if r.state == StateEnded {
		close(sub.ch)
		return sub.ch, func() {}
	}

	r.subs[sub.id] = sub
	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if s, ok := r.subs[sub.id]; ok {
			delete(r.subs, sub.id)
			close(s.ch)
		}
	}
	return sub.ch, unsubscribe
}

// replayEventsLocked assembles the reconnect preamble: one replay-tagged
// status snapshot followed by every unresolved permission request.
func (r *Runtime) replayEventsLocked() []agent.Event {
	st := r.backend.Status()
	events := []agent.Event{{
		Type:             agent.EventReplay,
		Status:           &st,
		BackendSessionID: st.BackendSessionID,
	}}

	ids := make([]string, 0, len(r.pendingPerms))
	for id := range r.pendingPerms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		events = append(events, agent.Event{
			Type:       agent.EventPermissionRequest,
			ToolCallID: id,
			Permission: r.pendingPerms[id],
		})
	}
	return events
}

// SendPrompt submits one user turn. Legal only while idle; a second prompt
// during a turn is rejected rather than queued.
func (r *Runtime) SendPrompt(ctx context.Context, content agent.MessageContent, opts *agent.PromptOptions) error {
	if err := agent.ValidateUserContent(content); err != nil {
		return err
	}

	r.mu.Lock()
	if err := r.ensureLiveLocked("prompt"); err != nil {
		r.mu.Unlock()
		return err
	}
	if r.state != StateIdle {
		s := r.state
		r.mu.Unlock()
		return errors.NewTransitionError(fmt.Sprintf("cannot prompt while session is %s", s), nil)
	}
	r.resetIdleLocked()
	r.mu.Unlock()

	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := r.backend.Prompt(ctx, content, opts); err != nil {
		return err
	}

	r.mu.Lock()
	if r.state == StateIdle {
		r.state = StateStreaming
	}
	r.mu.Unlock()

	r.persistUserMessage(content, nil)
	r.touch()
	return nil
}

// Steer redirects the in-flight generation. Streaming only.
func (r *Runtime) Steer(ctx context.Context, text string) error {
	if err := r.requireState("steer", StateStreaming); err != nil {
		return err
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := r.backend.Steer(ctx, text); err != nil {
		return err
	}
	r.persistUserMessage(agent.MessageContent{Text: text}, map[string]any{"kind": "steer"})
	r.touch()
	return nil
}

// FollowUp queues a message for delivery after the current turn. Streaming
// only.
func (r *Runtime) FollowUp(ctx context.Context, text string) error {
	if err := r.requireState("follow up", StateStreaming); err != nil {
		return err
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := r.backend.FollowUp(ctx, text); err != nil {
		return err
	}
	r.persistUserMessage(agent.MessageContent{Text: text}, map[string]any{"kind": "follow_up"})
	r.touch()
	return nil
}

// CancelPrompt aborts the current turn. Legal while streaming or while a
// permission request is pending.
func (r *Runtime) CancelPrompt(ctx context.Context) error {
	if err := r.requireState("cancel", StateStreaming, StateAwaitingPermission); err != nil {
		return err
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := r.backend.Cancel(ctx); err != nil {
		return err
	}
	r.touch()
	return nil
}

// Interrupt stops the current generation without discarding the turn.
// Streaming only.
func (r *Runtime) Interrupt(ctx context.Context) error {
	if err := r.requireState("interrupt", StateStreaming); err != nil {
		return err
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := r.backend.Interrupt(ctx); err != nil {
		return err
	}
	r.touch()
	return nil
}

// RespondToPermission answers a pending permission request. Legal while
// streaming or awaiting permission; the backend validates the tool call id.
func (r *Runtime) RespondToPermission(ctx context.Context, toolCallID, optionID string, answers map[string]any) error {
	if err := r.requireState("respond to permission", StateStreaming, StateAwaitingPermission); err != nil {
		return err
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := r.backend.RespondToPermission(ctx, toolCallID, optionID, answers); err != nil {
		return err
	}
	r.touch()
	return nil
}

// CancelPermission withdraws a pending permission request, denying the tool
// call. Legal only while a request is actually pending.
func (r *Runtime) CancelPermission(ctx context.Context, toolCallID string) error {
	if err := r.requireState("cancel permission", StateAwaitingPermission); err != nil {
		return err
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := r.backend.CancelPermission(ctx, toolCallID); err != nil {
		return err
	}
	r.touch()
	return nil
}

// SetModel switches the session model. Idle only.
func (r *Runtime) SetModel(ctx context.Context, model string) error {
	return r.setter(ctx, "set model", func(ctx context.Context) error {
		return r.backend.SetModel(ctx, model)
	})
}

// SetPermissionMode switches the permission mode. Idle only.
func (r *Runtime) SetPermissionMode(ctx context.Context, mode string) error {
	return r.setter(ctx, "set permission mode", func(ctx context.Context) error {
		return r.backend.SetPermissionMode(ctx, mode)
	})
}

// SetMaxThinkingTokens adjusts the thinking budget. Idle only.
func (r *Runtime) SetMaxThinkingTokens(ctx context.Context, tokens int) error {
	return r.setter(ctx, "set max thinking tokens", func(ctx context.Context) error {
		return r.backend.SetMaxThinkingTokens(ctx, tokens)
	})
}

// SetThinkingLevel adjusts the thinking level. Idle only.
func (r *Runtime) SetThinkingLevel(ctx context.Context, level string) error {
	return r.setter(ctx, "set thinking level", func(ctx context.Context) error {
		return r.backend.SetThinkingLevel(ctx, level)
	})
}

// CycleModel advances to the next available model. Idle only.
func (r *Runtime) CycleModel(ctx context.Context) error {
	return r.setter(ctx, "cycle model", r.backend.CycleModel)
}

// CycleThinkingLevel advances to the next thinking level. Idle only.
func (r *Runtime) CycleThinkingLevel(ctx context.Context) error {
	return r.setter(ctx, "cycle thinking level", r.backend.CycleThinkingLevel)
}

// Compact asks the backend to summarize and trim its history. Idle anywhere;
// Pi additionally accepts it mid-turn.
func (r *Runtime) Compact(ctx context.Context, instructions string) error {
	return r.treeOp(ctx, "compact", func(ctx context.Context) error {
		return r.backend.Compact(ctx, instructions)
	})
}

// Fork branches the conversation tree at entryID. Idle anywhere; Pi
// additionally accepts it mid-turn.
func (r *Runtime) Fork(ctx context.Context, entryID string) error {
	return r.treeOp(ctx, "fork", func(ctx context.Context) error {
		return r.backend.Fork(ctx, entryID)
	})
}

// Navigate moves the conversation cursor to entryID. Idle anywhere; Pi
// additionally accepts it mid-turn.
func (r *Runtime) Navigate(ctx context.Context, entryID string) error {
	return r.treeOp(ctx, "navigate", func(ctx context.Context) error {
		return r.backend.Navigate(ctx, entryID)
	})
}

// NewConversation starts a fresh conversation inside the same backend
// process. Idle anywhere; Pi additionally accepts it mid-turn.
func (r *Runtime) NewConversation(ctx context.Context) error {
	return r.treeOp(ctx, "start new conversation", r.backend.NewSession)
}

// Request forwards a backend-defined query. Legal in any live state; the
// reply payload is opaque to the gateway.
func (r *Runtime) Request(ctx context.Context, op string, params map[string]any) (any, error) {
	r.mu.Lock()
	if err := r.ensureLiveLocked(op); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.resetIdleLocked()
	r.mu.Unlock()

	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	return r.backend.Request(ctx, op, params)
}

// Terminate ends the session at the user's request. Idempotent: repeated
// calls after the first return nil.
func (r *Runtime) Terminate(ctx context.Context) error {
	return r.end(ctx, store.ReasonTerminated)
}

// Shutdown ends the runtime while keeping the persisted record resumable.
// The stored session is marked ended with the restart reason before the
// backend is torn down, so a crash mid-teardown leaves a consistent row.
func (r *Runtime) Shutdown(ctx context.Context) error {
	return r.end(ctx, store.ReasonServerRestart)
}

func (r *Runtime) end(ctx context.Context, reason string) error {
	r.mu.Lock()
	if r.state == StateEnded || r.closing {
		r.mu.Unlock()
		return nil
	}
	r.closing = true
	r.endReason = reason
	r.pauseIdleLocked()
	r.mu.Unlock()

	pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	if err := r.store.EndSession(pctx, r.sessionID, reason); err != nil {
		logger.Warnf("session %s: persisting end reason %q: %v", r.sessionID, reason, err)
	}
	cancel()

	// Dispose pushes the exit event through the normal feed before it
	// returns, which closes the subscriber channels.
	return r.backend.Dispose(ctx)
}

// setter runs one idle-only configuration change.
func (r *Runtime) setter(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := r.requireState(op, StateIdle); err != nil {
		return err
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := fn(ctx); err != nil {
		return err
	}
	r.touch()
	return nil
}

// treeOp runs one conversation-tree operation. Pi exposes its tree during a
// turn, so streaming is legal there; Claude only accepts these while idle.
func (r *Runtime) treeOp(ctx context.Context, op string, fn func(context.Context) error) error {
	allowed := []State{StateIdle}
	if r.kind == agent.KindPi {
		allowed = append(allowed, StateStreaming)
	}
	if err := r.requireState(op, allowed...); err != nil {
		return err
	}
	ctx, cancel := r.opCtx(ctx)
	defer cancel()
	if err := fn(ctx); err != nil {
		return err
	}
	r.touch()
	return nil
}

// requireState admits op when the session is in one of the allowed states.
// Accepted or not, an inbound command counts as activity for the idle timer.
func (r *Runtime) requireState(op string, allowed ...State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLiveLocked(op); err != nil {
		return err
	}
	r.resetIdleLocked()
	for _, s := range allowed {
		if r.state == s {
			return nil
		}
	}
	return errors.NewTransitionError(fmt.Sprintf("cannot %s while session is %s", op, r.state), nil)
}

func (r *Runtime) ensureLiveLocked(op string) error {
	if r.state == StateEnded || r.closing {
		return errors.NewTransitionError(fmt.Sprintf("session has ended, cannot %s", op), nil)
	}
	return nil
}

// opCtx bounds a backend call with the configured RPC timeout.
func (r *Runtime) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.rpcTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.rpcTimeout)
}

// handleBackendEvent is the single consumer of the backend feed. The backend
// guarantees ordered, non-overlapping invocation, so persistence here needs
// no locking; state effects and fan-out take the runtime mutex.
func (r *Runtime) handleBackendEvent(ev agent.Event) {
	r.persistEvent(&ev)

	r.mu.Lock()
	switch ev.Type {
	case agent.EventPermissionRequest:
		if ev.Permission != nil {
			r.pendingPerms[ev.Permission.ToolCallID] = ev.Permission
		}
		if r.state == StateStreaming {
			r.state = StateAwaitingPermission
			// The idle timer pauses while a human decision is pending.
			r.pauseIdleLocked()
		}
	case agent.EventPermissionResolved:
		delete(r.pendingPerms, ev.ToolCallID)
		if r.state == StateAwaitingPermission && len(r.pendingPerms) == 0 {
			r.state = StateStreaming
			r.resetIdleLocked()
		}
	case agent.EventPromptComplete:
		if r.state == StateStreaming || r.state == StateAwaitingPermission {
			r.state = StateIdle
		}
		// Any permission request the turn left behind is moot.
		for id := range r.pendingPerms {
			delete(r.pendingPerms, id)
		}
		r.resetIdleLocked()
	case agent.EventExit:
		r.state = StateEnded
		r.pauseIdleLocked()
	default:
		r.resetIdleLocked()
	}

	r.fanOutLocked(ev)

	if ev.Type == agent.EventPromptComplete && r.state == StateIdle {
		// Entering idle publishes a fresh status snapshot.
		r.fanOutLocked(r.statusEventLocked())
	}

	ended := ev.Type == agent.EventExit
	if ended {
		for id, sub := range r.subs {
			delete(r.subs, id)
			close(sub.ch)
		}
	}
	r.mu.Unlock()

	if ended {
		r.finishEnd(ev)
	}
}

// finishEnd records the end reason derived from the exit event and releases
// the manager slot. EndSession keeps the first reason, so an exit that
// follows Terminate or the idle timer is a no-op here.
func (r *Runtime) finishEnd(ev agent.Event) {
	r.endOnce.Do(func() {
		reason := store.ReasonBackendExit
		if ev.Reason == "error" {
			reason = store.ReasonBackendError
		}
		r.mu.Lock()
		if r.endReason != "" {
			// A terminate, shutdown or idle expiry already persisted its
			// reason; report that one.
			reason = r.endReason
		}
		r.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := r.store.EndSession(ctx, r.sessionID, reason); err != nil && !stderrors.Is(err, store.ErrNotFound) {
			logger.Warnf("session %s: persisting end reason %q: %v", r.sessionID, reason, err)
		}
		cancel()

		if r.unsubscribe != nil {
			r.unsubscribe()
		}
		if r.onEnded != nil {
			r.onEnded(r.sessionID)
		}
		r.metrics.SessionEnded(reason)
		logger.Infof("session %s ended", r.sessionID)
	})
}

// persistEvent writes the durable side of one backend event: the audit row
// (which assigns the seq echoed to subscribers), the first-reported backend
// session id, the assembled message row, and the activity timestamp.
func (r *Runtime) persistEvent(ev *agent.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if ev.BackendSessionID != "" {
		r.saveBackendID(ctx, ev.BackendSessionID)
	}

	if !ev.Persistent() {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Warnf("session %s: encoding %s event: %v", r.sessionID, ev.Type, err)
		payload = nil
	}
	seq, err := r.store.LogEvent(ctx, r.sessionID, ev.Type, payload)
	if err != nil {
		logger.Warnf("session %s: logging %s event: %v", r.sessionID, ev.Type, err)
	} else {
		ev.Seq = seq
	}

	if ev.Type == agent.EventMessage && ev.Content != nil {
		role := ev.Role
		if role == "" {
			role = store.RoleAssistant
		}
		msg := &store.Message{
			ID:        uuid.NewString(),
			SessionID: r.sessionID,
			Role:      role,
			Content:   *ev.Content,
		}
		if err := r.store.SaveMessage(ctx, msg); err != nil {
			logger.Warnf("session %s: persisting %s message: %v", r.sessionID, role, err)
		}
	}

	if !ev.Terminal() {
		if err := r.store.TouchSession(ctx, r.sessionID); err != nil && !stderrors.Is(err, store.ErrNotFound) {
			logger.Debugf("session %s: touching activity: %v", r.sessionID, err)
		}
	}
}

// saveBackendID records the backend-native session id. The store enforces
// set-once; later reports of a different id are logged and ignored.
func (r *Runtime) saveBackendID(ctx context.Context, backendID string) {
	r.mu.Lock()
	done := r.backendIDSet
	r.mu.Unlock()
	if done {
		return
	}

	err := r.store.SetBackendSessionID(ctx, r.sessionID, backendID)
	switch {
	case err == nil:
	case stderrors.Is(err, store.ErrBackendIDSet):
		logger.Debugf("session %s: backend session id already recorded, ignoring %q", r.sessionID, backendID)
	default:
		logger.Warnf("session %s: persisting backend session id: %v", r.sessionID, err)
		return
	}

	r.mu.Lock()
	r.backendIDSet = true
	r.mu.Unlock()
}

// persistUserMessage appends one user-originated message row.
func (r *Runtime) persistUserMessage(content agent.MessageContent, metadata map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	msg := &store.Message{
		ID:        uuid.NewString(),
		SessionID: r.sessionID,
		Role:      store.RoleUser,
		Content:   content,
		Metadata:  metadata,
	}
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		logger.Warnf("session %s: persisting user message: %v", r.sessionID, err)
	}
}

// touch bumps the activity timestamp after an accepted command.
func (r *Runtime) touch() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.store.TouchSession(ctx, r.sessionID); err != nil && !stderrors.Is(err, store.ErrNotFound) {
		logger.Debugf("session %s: touching activity: %v", r.sessionID, err)
	}
}

// statusEventLocked snapshots the backend into a status event.
func (r *Runtime) statusEventLocked() agent.Event {
	st := r.backend.Status()
	return agent.Event{
		Type:             agent.EventStatus,
		Status:           &st,
		Model:            st.Model,
		BackendSessionID: st.BackendSessionID,
	}
}

// fanOutLocked delivers ev to every subscriber without blocking. A full
// buffer drops the subscriber: its channel closes immediately and the
// survivors observe a subscriber_dropped notice.
func (r *Runtime) fanOutLocked(ev agent.Event) {
	var dropped []int
	for id, sub := range r.subs {
		select {
		case sub.ch <- ev:
			r.metrics.EventFanned()
		default:
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		sub := r.subs[id]
		delete(r.subs, id)
		close(sub.ch)
		r.metrics.SubscriberDropped()
		logger.Warnf("session %s: dropping slow subscriber %d", r.sessionID, id)
	}
	if len(dropped) > 0 && len(r.subs) > 0 {
		r.fanOutLocked(agent.Event{
			Type:   agent.EventSubscriberDropped,
			Reason: "subscriber buffer overflow",
		})
	}
}

// publish persists a runtime-originated event and fans it out.
func (r *Runtime) publish(ev agent.Event) {
	r.persistEvent(&ev)
	r.mu.Lock()
	r.fanOutLocked(ev)
	r.mu.Unlock()
}

// onIdleExpired fires on the timer goroutine. The timer only ever expires in
// idle: inbound commands and outbound events reset it, and it pauses while a
// permission request is pending.
func (r *Runtime) onIdleExpired() {
	r.mu.Lock()
	if r.state != StateIdle || r.closing {
		r.mu.Unlock()
		return
	}
	r.closing = true
	r.endReason = store.ReasonIdleTimeout
	r.mu.Unlock()

	logger.Infof("session %s: idle timeout after %s, ending session", r.sessionID, r.idleTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), disposeTimeout)
	defer cancel()

	if err := r.store.MarkIdle(ctx, r.sessionID); err != nil && !stderrors.Is(err, store.ErrNotFound) {
		logger.Warnf("session %s: marking idle: %v", r.sessionID, err)
	}
	r.publish(agent.Event{Type: agent.EventIdle, Reason: store.ReasonIdleTimeout})
	if err := r.store.EndSession(ctx, r.sessionID, store.ReasonIdleTimeout); err != nil {
		logger.Warnf("session %s: persisting idle end: %v", r.sessionID, err)
	}
	if err := r.backend.Dispose(ctx); err != nil {
		logger.Warnf("session %s: disposing backend after idle timeout: %v", r.sessionID, err)
	}
}

// resetIdleLocked re-arms the idle timer. No-op while a permission decision
// is pending or once teardown has begun.
func (r *Runtime) resetIdleLocked() {
	if r.idleTimer == nil || r.closing {
		return
	}
	if r.state == StateAwaitingPermission || r.state == StateEnded {
		return
	}
	r.idleTimer.Reset(r.idleTimeout)
}

func (r *Runtime) pauseIdleLocked() {
	if r.idleTimer != nil {
		r.idleTimer.Stop()
	}
}
