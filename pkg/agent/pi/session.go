// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package pi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/logger"
)

// runner is the slice of agent.Proc the session consumes.
type runner interface {
	Send(v any) error
	Lines() <-chan json.RawMessage
	Done() <-chan struct{}
	Err() error
	StderrTail() string
	Close(ctx context.Context) error
}

// session drives one pi runner process. The runner acknowledges every
// command with an id-correlated response line and broadcasts agent events
// interleaved with those responses.
type session struct {
	proc      runner
	sessionID string

	mu               sync.Mutex
	backendSessionID string
	model            string
	thinkingLevel    string
	permissionMode   string
	streaming        bool
	exited           bool
	inputTokens      int64

	pendingPerms map[string]struct{}

	pending map[string]chan rpcLine
	reqSeq  atomic.Int64

	subMu   sync.Mutex
	subs    map[int]agent.Handler
	nextSub int
	emitMu  sync.Mutex

	readDone    chan struct{}
	disposeOnce sync.Once
}

var _ agent.BackendSession = (*session)(nil)

func newSession(cfg agent.SessionConfig, proc runner) *session {
	return &session{
		proc:             proc,
		sessionID:        cfg.SessionID,
		backendSessionID: cfg.BackendSessionID,
		model:            cfg.Model,
		permissionMode:   cfg.PermissionMode,
		pendingPerms:     make(map[string]struct{}),
		pending:          make(map[string]chan rpcLine),
		subs:             make(map[int]agent.Handler),
		readDone:         make(chan struct{}),
	}
}

// Prompt enqueues one user turn.
func (s *session) Prompt(ctx context.Context, content agent.MessageContent, opts *agent.PromptOptions) error {
	if opts != nil && opts.Model != "" {
		if err := s.SetModel(ctx, opts.Model); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.exited {
		s.mu.Unlock()
		return errors.NewBackendError("pi runner has exited", nil)
	}
	if s.streaming {
		s.mu.Unlock()
		return errors.NewTransitionError("a prompt is already streaming", nil)
	}
	s.streaming = true
	s.mu.Unlock()

	if _, err := s.rpc(ctx, rpcCommand{Type: "prompt", Message: &content}); err != nil {
		s.mu.Lock()
		s.streaming = false
		s.mu.Unlock()
		return err
	}
	return nil
}

// Steer redirects the current generation. The runner rejects it when no
// turn is active.
func (s *session) Steer(ctx context.Context, text string) error {
	content := agent.Text(text)
	_, err := s.rpc(ctx, rpcCommand{Type: "steer", Message: &content})
	return err
}

// FollowUp queues a message delivered after the current turn ends.
func (s *session) FollowUp(ctx context.Context, text string) error {
	content := agent.Text(text)
	_, err := s.rpc(ctx, rpcCommand{Type: "follow_up", Message: &content})
	return err
}

// Cancel aborts the current turn and discards queued follow-ups.
func (s *session) Cancel(ctx context.Context) error {
	_, err := s.rpc(ctx, rpcCommand{Type: "abort"})
	return err
}

// Interrupt stops the current generation but keeps the turn's queue.
func (s *session) Interrupt(ctx context.Context) error {
	_, err := s.rpc(ctx, rpcCommand{Type: "interrupt"})
	return err
}

// SetModel switches the model for subsequent turns.
func (s *session) SetModel(ctx context.Context, model string) error {
	data, err := s.rpc(ctx, rpcCommand{Type: "set_model", Model: model})
	if err != nil {
		return err
	}
	s.applyState(data)
	s.emit(s.statusEvent())
	return nil
}

// SetPermissionMode switches the tool permission mode.
func (s *session) SetPermissionMode(ctx context.Context, mode string) error {
	if _, err := s.rpc(ctx, rpcCommand{Type: "set_permission_mode", Mode: mode}); err != nil {
		return err
	}
	s.mu.Lock()
	s.permissionMode = mode
	s.mu.Unlock()
	s.emit(s.statusEvent())
	return nil
}

// SetMaxThinkingTokens is a Claude concept; Pi thinks in named levels, so
// this is an advisory no-op.
func (*session) SetMaxThinkingTokens(context.Context, int) error { return nil }

// SetThinkingLevel selects a named thinking level.
func (s *session) SetThinkingLevel(ctx context.Context, level string) error {
	data, err := s.rpc(ctx, rpcCommand{Type: "set_thinking_level", Level: level})
	if err != nil {
		return err
	}
	s.applyState(data)
	s.emit(s.statusEvent())
	return nil
}

// CycleModel advances to the next configured model.
func (s *session) CycleModel(ctx context.Context) error {
	data, err := s.rpc(ctx, rpcCommand{Type: "cycle_model"})
	if err != nil {
		return err
	}
	s.applyState(data)
	s.emit(s.statusEvent())
	return nil
}

// CycleThinkingLevel advances to the next thinking level.
func (s *session) CycleThinkingLevel(ctx context.Context) error {
	data, err := s.rpc(ctx, rpcCommand{Type: "cycle_thinking_level"})
	if err != nil {
		return err
	}
	s.applyState(data)
	s.emit(s.statusEvent())
	return nil
}

// Compact asks the runner to summarize and trim its history. Compaction
// streams like a turn.
func (s *session) Compact(ctx context.Context, instructions string) error {
	_, err := s.rpc(ctx, rpcCommand{Type: "compact", Instructions: instructions})
	return err
}

// Fork branches the conversation tree at an entry.
func (s *session) Fork(ctx context.Context, entryID string) error {
	_, err := s.rpc(ctx, rpcCommand{Type: "fork", EntryID: entryID})
	return err
}

// Navigate moves to another entry in the conversation tree.
func (s *session) Navigate(ctx context.Context, entryID string) error {
	_, err := s.rpc(ctx, rpcCommand{Type: "navigate", EntryID: entryID})
	return err
}

// NewSession starts a fresh conversation root within the same runner.
func (s *session) NewSession(ctx context.Context) error {
	_, err := s.rpc(ctx, rpcCommand{Type: "new_session"})
	return err
}

// RespondToPermission answers a pending permission request. The runner
// broadcasts the resolution event.
func (s *session) RespondToPermission(ctx context.Context, toolCallID, optionID string, answers map[string]any) error {
	s.mu.Lock()
	_, ok := s.pendingPerms[toolCallID]
	s.mu.Unlock()
	if !ok {
		return errors.NewValidationError(fmt.Sprintf("no pending permission request for tool call %q", toolCallID), nil)
	}
	_, err := s.rpc(ctx, rpcCommand{
		Type:       "permission",
		ToolCallID: toolCallID,
		OptionID:   optionID,
		Answers:    answers,
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.pendingPerms, toolCallID)
	s.mu.Unlock()
	return nil
}

// CancelPermission withdraws a pending permission request.
func (s *session) CancelPermission(ctx context.Context, toolCallID string) error {
	s.mu.Lock()
	_, ok := s.pendingPerms[toolCallID]
	s.mu.Unlock()
	if !ok {
		return errors.NewValidationError(fmt.Sprintf("no pending permission request for tool call %q", toolCallID), nil)
	}
	_, err := s.rpc(ctx, rpcCommand{Type: "cancel_permission", ToolCallID: toolCallID})
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.pendingPerms, toolCallID)
	s.mu.Unlock()
	return nil
}

// Request forwards a backend-defined operation. Command names arrive with
// the gateway's pi_ prefix, which the runner does not use.
func (s *session) Request(ctx context.Context, op string, params map[string]any) (any, error) {
	data, err := s.rpc(ctx, rpcCommand{Type: strings.TrimPrefix(op, "pi_"), Params: params})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.NewBackendError(fmt.Sprintf("decoding %s response from pi runner", op), err)
	}
	return out, nil
}

// Subscribe registers an event handler and returns its unsubscribe func.
func (s *session) Subscribe(h agent.Handler) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = h
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Status returns a point-in-time snapshot.
func (s *session) Status() agent.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Dispose shuts the runner down. The exit event has been emitted by the
// time Dispose returns.
func (s *session) Dispose(ctx context.Context) error {
	var err error
	s.disposeOnce.Do(func() {
		err = s.proc.Close(ctx)
		<-s.readDone
	})
	return err
}

func (s *session) statusLocked() agent.Status {
	return agent.Status{
		Streaming:        s.streaming,
		Model:            s.model,
		PermissionMode:   s.permissionMode,
		ThinkingLevel:    s.thinkingLevel,
		TokensUsed:       s.inputTokens,
		Resumable:        s.backendSessionID != "",
		BackendSessionID: s.backendSessionID,
	}
}

func (s *session) statusEvent() agent.Event {
	s.mu.Lock()
	st := s.statusLocked()
	s.mu.Unlock()
	return agent.Event{Type: agent.EventStatus, Status: &st, BackendSessionID: st.BackendSessionID}
}

func (s *session) emit(ev agent.Event) {
	s.subMu.Lock()
	handlers := make([]agent.Handler, 0, len(s.subs))
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	s.subMu.Unlock()

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// applyState folds a state-bearing response payload into the snapshot.
func (s *session) applyState(data json.RawMessage) {
	if len(data) == 0 {
		return
	}
	var st stateData
	if err := json.Unmarshal(data, &st); err != nil {
		return
	}
	s.mu.Lock()
	if st.Model != "" {
		s.model = st.Model
	}
	if st.ThinkingLevel != "" {
		s.thinkingLevel = st.ThinkingLevel
	}
	s.mu.Unlock()
}

// rpc performs one id-correlated command round-trip with the runner.
func (s *session) rpc(ctx context.Context, cmd rpcCommand) (json.RawMessage, error) {
	cmd.ID = fmt.Sprintf("req_%d", s.reqSeq.Add(1))
	ch := make(chan rpcLine, 1)
	s.mu.Lock()
	if s.exited {
		s.mu.Unlock()
		return nil, errors.NewBackendError("pi runner has exited", nil)
	}
	s.pending[cmd.ID] = ch
	s.mu.Unlock()

	cleanup := func() {
		s.mu.Lock()
		delete(s.pending, cmd.ID)
		s.mu.Unlock()
	}

	if err := s.proc.Send(cmd); err != nil {
		cleanup()
		return nil, errors.NewBackendError(fmt.Sprintf("sending %s command to pi runner", cmd.Type), err)
	}

	select {
	case resp := <-ch:
		if !resp.OK {
			msg := resp.Error
			if msg == "" {
				msg = "command rejected"
			}
			return nil, errors.NewBackendError(fmt.Sprintf("pi runner rejected %s: %s", cmd.Type, msg), nil)
		}
		return resp.Data, nil
	case <-ctx.Done():
		cleanup()
		return nil, errors.NewBackendError(fmt.Sprintf("%s command to pi runner timed out", cmd.Type), ctx.Err())
	case <-s.proc.Done():
		cleanup()
		return nil, errors.NewBackendError("pi runner exited during command", s.proc.Err())
	}
}

// readLoop consumes runner stdout until the process exits.
func (s *session) readLoop() {
	defer close(s.readDone)
	for raw := range s.proc.Lines() {
		s.handleLine(raw)
	}
	s.finish()
}

func (s *session) handleLine(raw json.RawMessage) {
	var line rpcLine
	if err := json.Unmarshal(raw, &line); err != nil {
		logger.Debugf("session %s: pi runner sent unparseable line: %v", s.sessionID, err)
		return
	}

	switch line.Type {
	case "ready":
		s.handleReady(line)
	case "response":
		s.handleResponse(line)
	case "text_delta":
		s.emit(agent.Event{Type: agent.EventMessageChunk, Delta: line.Delta})
	case "thinking_delta":
		s.emit(agent.Event{Type: agent.EventThinkingChunk, Delta: line.Delta})
	case "message":
		if line.Message != nil {
			content := line.Message.Content
			s.emit(agent.Event{Type: agent.EventMessage, Role: line.Message.Role, Content: &content})
		}
	case "tool_start":
		s.emit(agent.Event{
			Type:       agent.EventToolCallStart,
			ToolCallID: line.ToolCallID,
			ToolName:   line.Name,
			ToolInput:  line.Input,
		})
	case "tool_end":
		s.emit(agent.Event{
			Type:       agent.EventToolCallEnd,
			ToolCallID: line.ToolCallID,
			ToolOutput: line.Output,
		})
	case "permission_request":
		s.handlePermissionRequest(line)
	case "permission_resolved":
		s.mu.Lock()
		delete(s.pendingPerms, line.ToolCallID)
		s.mu.Unlock()
		s.emit(agent.Event{
			Type:       agent.EventPermissionResolved,
			ToolCallID: line.ToolCallID,
			OptionID:   line.OptionID,
		})
	case "turn_start":
		s.mu.Lock()
		s.streaming = true
		s.mu.Unlock()
	case "turn_end":
		s.handleTurnEnd(line)
	case "error":
		msg := line.Error
		if msg == "" {
			msg = "pi runner error"
		}
		s.emit(agent.Event{Type: agent.EventError, Error: msg, Recoverable: line.Recoverable})
	default:
		logger.Debugf("session %s: pi runner sent unknown event type %q", s.sessionID, line.Type)
	}
}

func (s *session) handleReady(line rpcLine) {
	s.mu.Lock()
	if s.backendSessionID == "" {
		s.backendSessionID = line.SessionID
	} else if line.SessionID != "" && line.SessionID != s.backendSessionID {
		logger.Debugf("session %s: pi runner reported session id %q, keeping %q",
			s.sessionID, line.SessionID, s.backendSessionID)
	}
	if line.Model != "" {
		s.model = line.Model
	}
	if line.ThinkingLevel != "" {
		s.thinkingLevel = line.ThinkingLevel
	}
	if line.PermissionMode != "" {
		s.permissionMode = line.PermissionMode
	}
	s.mu.Unlock()
	s.emit(s.statusEvent())
}

func (s *session) handleResponse(line rpcLine) {
	s.mu.Lock()
	ch, ok := s.pending[line.ID]
	if ok {
		delete(s.pending, line.ID)
	}
	s.mu.Unlock()
	if ok {
		ch <- line
	}
}

func (s *session) handlePermissionRequest(line rpcLine) {
	if line.Permission == nil || line.Permission.ToolCallID == "" {
		return
	}
	s.mu.Lock()
	s.pendingPerms[line.Permission.ToolCallID] = struct{}{}
	s.mu.Unlock()
	s.emit(agent.Event{Type: agent.EventPermissionRequest, Permission: line.Permission})
}

func (s *session) handleTurnEnd(line rpcLine) {
	s.mu.Lock()
	s.streaming = false
	var usage *agent.Usage
	if line.Usage != nil {
		s.inputTokens = line.Usage.InputTokens
		usage = &agent.Usage{
			InputTokens:  line.Usage.InputTokens,
			OutputTokens: line.Usage.OutputTokens,
			TotalTokens:  line.Usage.InputTokens + line.Usage.OutputTokens,
		}
	}
	s.mu.Unlock()
	s.emit(agent.Event{Type: agent.EventPromptComplete, Usage: usage})
}

// finish emits the terminal events after the runner process goes away.
func (s *session) finish() {
	s.mu.Lock()
	if s.exited {
		s.mu.Unlock()
		return
	}
	s.exited = true
	s.streaming = false
	backendID := s.backendSessionID
	s.mu.Unlock()

	reason := "exit"
	if err := s.proc.Err(); err != nil {
		reason = "error"
		detail := err.Error()
		if tail := s.proc.StderrTail(); tail != "" {
			detail = detail + ": " + tail
		}
		s.emit(agent.Event{
			Type:        agent.EventError,
			Error:       fmt.Sprintf("pi runner exited: %s", detail),
			Recoverable: false,
		})
	}
	s.emit(agent.Event{Type: agent.EventExit, Reason: reason, BackendSessionID: backendID})
}
