// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package claude

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

// session drives one claude runner process. All stdout lines are consumed
// by a single readLoop goroutine; emit serializes handler invocation so
// subscribers observe events in arrival order.
type session struct {
	proc      runner
	sessionID string

	mu               sync.Mutex
	backendSessionID string
	model            string
	permissionMode   string
	streaming        bool
	exited           bool
	inputTokens      int64
	turnOutput       int64

	// pendingPerms maps a tool call id to the control request awaiting a
	// permission decision.
	pendingPerms map[string]string

	// pending correlates outbound control requests with their responses.
	pending map[string]chan controlResponse
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
		pendingPerms:     make(map[string]string),
		pending:          make(map[string]chan controlResponse),
		subs:             make(map[int]agent.Handler),
		readDone:         make(chan struct{}),
	}
}

// Prompt enqueues one user turn on the runner's stdin.
func (s *session) Prompt(ctx context.Context, content agent.MessageContent, opts *agent.PromptOptions) error {
	if opts != nil && opts.Model != "" {
		if err := s.SetModel(ctx, opts.Model); err != nil {
			return err
		}
	}
	if opts != nil && opts.MaxThinkingTokens > 0 {
		if err := s.SetMaxThinkingTokens(ctx, opts.MaxThinkingTokens); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.exited {
		s.mu.Unlock()
		return errors.NewBackendError("claude runner has exited", nil)
	}
	if s.streaming {
		s.mu.Unlock()
		return errors.NewTransitionError("a prompt is already streaming", nil)
	}
	s.streaming = true
	s.turnOutput = 0
	sid := s.backendSessionID
	s.mu.Unlock()

	msg := stdinUserMessage{
		Type:      "user",
		SessionID: sid,
		Message:   stdinMessageBody{Role: "user", Content: toWireBlocks(content)},
	}
	if err := s.proc.Send(msg); err != nil {
		s.mu.Lock()
		s.streaming = false
		s.mu.Unlock()
		return errors.NewBackendError("delivering prompt to claude runner", err)
	}
	return nil
}

// Steer is a Pi concept; the Claude SDK has no mid-generation redirect.
func (*session) Steer(context.Context, string) error {
	return errors.NewValidationError("the claude backend does not support steering", nil)
}

// FollowUp queues a user message that the runner picks up when the current
// turn ends.
func (s *session) FollowUp(_ context.Context, text string) error {
	s.mu.Lock()
	sid := s.backendSessionID
	exited := s.exited
	s.mu.Unlock()
	if exited {
		return errors.NewBackendError("claude runner has exited", nil)
	}
	msg := stdinUserMessage{
		Type:      "user",
		SessionID: sid,
		Message:   stdinMessageBody{Role: "user", Content: toWireBlocks(agent.Text(text))},
	}
	if err := s.proc.Send(msg); err != nil {
		return errors.NewBackendError("delivering follow-up to claude runner", err)
	}
	return nil
}

// Cancel aborts the current turn. The runner acknowledges with a result
// line, which settles the streaming state.
func (s *session) Cancel(ctx context.Context) error {
	_, err := s.sendControl(ctx, "interrupt", nil)
	return err
}

// Interrupt stops the current generation. The claude runner treats this the
// same as a turn abort.
func (s *session) Interrupt(ctx context.Context) error {
	_, err := s.sendControl(ctx, "interrupt", nil)
	return err
}

// SetModel switches the model for subsequent turns.
func (s *session) SetModel(ctx context.Context, model string) error {
	if _, err := s.sendControl(ctx, "set_model", map[string]any{"model": model}); err != nil {
		return err
	}
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
	s.emit(s.statusEvent())
	return nil
}

// SetPermissionMode switches the tool permission mode.
func (s *session) SetPermissionMode(ctx context.Context, mode string) error {
	if _, err := s.sendControl(ctx, "set_permission_mode", map[string]any{"mode": mode}); err != nil {
		return err
	}
	s.mu.Lock()
	s.permissionMode = mode
	s.mu.Unlock()
	s.emit(s.statusEvent())
	return nil
}

// SetMaxThinkingTokens bounds extended thinking for subsequent turns.
func (s *session) SetMaxThinkingTokens(ctx context.Context, tokens int) error {
	_, err := s.sendControl(ctx, "set_max_thinking_tokens", map[string]any{"max_thinking_tokens": tokens})
	return err
}

// SetThinkingLevel is a Pi concept; advisory no-op here.
func (*session) SetThinkingLevel(context.Context, string) error { return nil }

// CycleModel is a Pi concept; advisory no-op here.
func (*session) CycleModel(context.Context) error { return nil }

// CycleThinkingLevel is a Pi concept; advisory no-op here.
func (*session) CycleThinkingLevel(context.Context) error { return nil }

// Compact asks the runner to summarize and trim its context. Compaction
// streams like a turn and finishes with a result line.
func (s *session) Compact(_ context.Context, instructions string) error {
	text := "/compact"
	if instructions != "" {
		text += " " + instructions
	}

	s.mu.Lock()
	if s.exited {
		s.mu.Unlock()
		return errors.NewBackendError("claude runner has exited", nil)
	}
	if s.streaming {
		s.mu.Unlock()
		return errors.NewTransitionError("cannot compact while a prompt is streaming", nil)
	}
	s.streaming = true
	s.turnOutput = 0
	sid := s.backendSessionID
	s.mu.Unlock()

	msg := stdinUserMessage{
		Type:      "user",
		SessionID: sid,
		Message:   stdinMessageBody{Role: "user", Content: toWireBlocks(agent.Text(text))},
	}
	if err := s.proc.Send(msg); err != nil {
		s.mu.Lock()
		s.streaming = false
		s.mu.Unlock()
		return errors.NewBackendError("delivering compact request to claude runner", err)
	}
	return nil
}

// Fork is unsupported: the Claude SDK exposes a linear conversation.
func (*session) Fork(context.Context, string) error {
	return errors.NewTransitionError("the claude backend has no conversation tree", nil)
}

// Navigate is unsupported: the Claude SDK exposes a linear conversation.
func (*session) Navigate(context.Context, string) error {
	return errors.NewTransitionError("the claude backend has no conversation tree", nil)
}

// NewSession is unsupported: the Claude SDK exposes a linear conversation.
func (*session) NewSession(context.Context) error {
	return errors.NewTransitionError("the claude backend has no conversation tree", nil)
}

// RespondToPermission answers a pending can_use_tool request.
func (s *session) RespondToPermission(_ context.Context, toolCallID, optionID string, answers map[string]any) error {
	s.mu.Lock()
	requestID, ok := s.pendingPerms[toolCallID]
	if ok {
		delete(s.pendingPerms, toolCallID)
	}
	s.mu.Unlock()
	if !ok {
		return errors.NewValidationError(fmt.Sprintf("no pending permission request for tool call %q", toolCallID), nil)
	}

	decision := permissionDecision{Behavior: "allow"}
	if optionID == "deny" {
		decision = permissionDecision{Behavior: "deny", Message: "denied by user"}
	} else if len(answers) > 0 {
		decision.UpdatedInput = answers
	}

	reply := controlResult{
		Type:     "control_response",
		Response: controlResultBody{Subtype: "success", RequestID: requestID, Response: decision},
	}
	if err := s.proc.Send(reply); err != nil {
		return errors.NewBackendError("delivering permission response to claude runner", err)
	}
	s.emit(agent.Event{Type: agent.EventPermissionResolved, ToolCallID: toolCallID, OptionID: optionID})
	return nil
}

// CancelPermission withdraws a pending request by denying it.
func (s *session) CancelPermission(_ context.Context, toolCallID string) error {
	s.mu.Lock()
	requestID, ok := s.pendingPerms[toolCallID]
	if ok {
		delete(s.pendingPerms, toolCallID)
	}
	s.mu.Unlock()
	if !ok {
		return errors.NewValidationError(fmt.Sprintf("no pending permission request for tool call %q", toolCallID), nil)
	}

	reply := controlResult{
		Type: "control_response",
		Response: controlResultBody{
			Subtype:   "success",
			RequestID: requestID,
			Response:  permissionDecision{Behavior: "deny", Message: "permission request canceled"},
		},
	}
	if err := s.proc.Send(reply); err != nil {
		return errors.NewBackendError("delivering permission cancellation to claude runner", err)
	}
	s.emit(agent.Event{Type: agent.EventPermissionResolved, ToolCallID: toolCallID, OptionID: "cancel"})
	return nil
}

// Request forwards a backend-defined operation as a control request and
// returns the decoded reply.
func (s *session) Request(ctx context.Context, op string, params map[string]any) (any, error) {
	raw, err := s.sendControl(ctx, op, params)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.NewBackendError(fmt.Sprintf("decoding %s response from claude runner", op), err)
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

// emit fans an event out to subscribers. emitMu serializes delivery so no
// handler runs concurrently with itself.
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

// sendControl performs one correlated control round-trip with the runner.
func (s *session) sendControl(ctx context.Context, subtype string, params map[string]any) (json.RawMessage, error) {
	req := make(map[string]any, len(params)+1)
	for k, v := range params {
		req[k] = v
	}
	req["subtype"] = subtype

	id := fmt.Sprintf("req_%d", s.reqSeq.Add(1))
	ch := make(chan controlResponse, 1)
	s.mu.Lock()
	if s.exited {
		s.mu.Unlock()
		return nil, errors.NewBackendError("claude runner has exited", nil)
	}
	s.pending[id] = ch
	s.mu.Unlock()

	cleanup := func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}

	if err := s.proc.Send(controlRequest{Type: "control_request", RequestID: id, Request: req}); err != nil {
		cleanup()
		return nil, errors.NewBackendError(fmt.Sprintf("sending %s request to claude runner", subtype), err)
	}

	select {
	case resp := <-ch:
		if resp.Subtype == "error" {
			return nil, errors.NewBackendError(fmt.Sprintf("claude runner rejected %s: %s", subtype, resp.Error), nil)
		}
		return resp.Response, nil
	case <-ctx.Done():
		cleanup()
		return nil, errors.NewBackendError(fmt.Sprintf("%s request to claude runner timed out", subtype), ctx.Err())
	case <-s.proc.Done():
		cleanup()
		return nil, errors.NewBackendError("claude runner exited during request", s.proc.Err())
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
	var line streamLine
	if err := json.Unmarshal(raw, &line); err != nil {
		logger.Debugf("session %s: claude runner sent unparseable line: %v", s.sessionID, err)
		return
	}
	if line.SessionID != "" {
		s.captureBackendSessionID(line.SessionID)
	}

	switch line.Type {
	case "system":
		s.handleSystem(line)
	case "stream_event":
		s.handleStreamEvent(line.Event)
	case "assistant":
		s.handleAssistant(line.Message)
	case "user":
		s.handleUser(line.Message)
	case "result":
		s.handleResult(line)
	case "control_request":
		s.handleControlRequest(line)
	case "control_response":
		s.handleControlResponse(line)
	default:
		logger.Debugf("session %s: claude runner sent unknown event type %q", s.sessionID, line.Type)
	}
}

// captureBackendSessionID records the runner-assigned id. The first value
// wins for the life of the gateway session.
func (s *session) captureBackendSessionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.backendSessionID == "":
		s.backendSessionID = id
	case s.backendSessionID != id:
		logger.Debugf("session %s: claude runner reported session id %q, keeping %q",
			s.sessionID, id, s.backendSessionID)
	}
}

func (s *session) handleSystem(line streamLine) {
	if line.Subtype != "init" {
		logger.Debugf("session %s: claude runner system event %q", s.sessionID, line.Subtype)
		return
	}
	s.mu.Lock()
	if line.Model != "" {
		s.model = line.Model
	}
	if line.PermissionMode != "" {
		s.permissionMode = line.PermissionMode
	}
	s.mu.Unlock()
	s.emit(s.statusEvent())
}

func (s *session) handleStreamEvent(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var inner streamInner
	if err := json.Unmarshal(raw, &inner); err != nil {
		return
	}
	switch inner.Type {
	case "message_start":
		if len(inner.Message) == 0 {
			return
		}
		var msg wireMessage
		if err := json.Unmarshal(inner.Message, &msg); err == nil && msg.Usage != nil {
			s.mu.Lock()
			if t := msg.Usage.total(); t > 0 {
				s.inputTokens = t
			}
			s.mu.Unlock()
		}
	case "content_block_delta":
		if len(inner.Delta) == 0 {
			return
		}
		var d streamDelta
		if err := json.Unmarshal(inner.Delta, &d); err != nil {
			return
		}
		switch d.Type {
		case "text_delta":
			s.emit(agent.Event{Type: agent.EventMessageChunk, Delta: d.Text})
		case "thinking_delta":
			s.emit(agent.Event{Type: agent.EventThinkingChunk, Delta: d.Thinking})
		}
	}
}

// handleAssistant processes one complete assistant API message: tool use
// starts, usage accounting, and the assembled message event.
func (s *session) handleAssistant(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Debugf("session %s: claude runner sent unparseable assistant message: %v", s.sessionID, err)
		return
	}

	if msg.Usage != nil {
		s.mu.Lock()
		if t := msg.Usage.total(); t > 0 {
			s.inputTokens = t
		}
		s.turnOutput += msg.Usage.OutputTokens
		s.mu.Unlock()
	}

	for _, b := range msg.Content {
		if b.Type == "tool_use" {
			s.emit(agent.Event{
				Type:       agent.EventToolCallStart,
				ToolCallID: b.ID,
				ToolName:   b.Name,
				ToolInput:  b.Input,
			})
		}
	}

	if len(msg.Content) > 0 {
		content := fromWireBlocks(msg.Content)
		s.emit(agent.Event{Type: agent.EventMessage, Role: "assistant", Content: &content})
	}
}

// handleUser surfaces tool results, which the runner reports as user-role
// messages. The gateway's own user turns are persisted at the command
// boundary, so these are never re-emitted as messages.
func (s *session) handleUser(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	for _, b := range msg.Content {
		if b.Type == "tool_result" {
			s.emit(agent.Event{
				Type:       agent.EventToolCallEnd,
				ToolCallID: b.ToolUseID,
				ToolOutput: b.Content,
			})
		}
	}
}

func (s *session) handleResult(line streamLine) {
	s.mu.Lock()
	s.streaming = false
	input := s.inputTokens
	output := s.turnOutput
	if len(line.Usage) > 0 {
		var u wireUsage
		if err := json.Unmarshal(line.Usage, &u); err == nil {
			if t := u.total(); t > 0 {
				input = t
				s.inputTokens = t
			}
			if u.OutputTokens > 0 {
				output = u.OutputTokens
			}
		}
	}
	s.mu.Unlock()

	if line.IsError {
		detail := line.Result
		if len(line.Errors) > 0 {
			detail = strings.Join(line.Errors, "; ")
		}
		if detail == "" {
			detail = "turn failed"
		}
		s.emit(agent.Event{Type: agent.EventError, Error: detail, Recoverable: true})
	}

	s.emit(agent.Event{
		Type: agent.EventPromptComplete,
		Usage: &agent.Usage{
			InputTokens:  input,
			OutputTokens: output,
			TotalTokens:  input + output,
		},
	})
}

// handleControlRequest processes an inbound permission prompt.
func (s *session) handleControlRequest(line streamLine) {
	if len(line.Request) == 0 || line.RequestID == "" {
		return
	}
	var req permissionPayload
	if err := json.Unmarshal(line.Request, &req); err != nil {
		return
	}
	if req.Subtype != "can_use_tool" {
		reply := controlResult{
			Type: "control_response",
			Response: controlResultBody{
				Subtype:   "error",
				RequestID: line.RequestID,
				Error:     fmt.Sprintf("unsupported control request %q", req.Subtype),
			},
		}
		if err := s.proc.Send(reply); err != nil {
			logger.Debugf("session %s: replying to control request: %v", s.sessionID, err)
		}
		return
	}

	toolCallID := req.ToolUseID
	if toolCallID == "" {
		toolCallID = line.RequestID
	}
	s.mu.Lock()
	s.pendingPerms[toolCallID] = line.RequestID
	s.mu.Unlock()

	s.emit(agent.Event{
		Type: agent.EventPermissionRequest,
		Permission: &agent.PermissionRequest{
			ToolCallID: toolCallID,
			ToolName:   req.ToolName,
			Input:      req.Input,
			Options: []agent.PermissionOption{
				{OptionID: "allow", Label: "Allow", Kind: "allow"},
				{OptionID: "deny", Label: "Deny", Kind: "deny"},
			},
		},
	})
}

func (s *session) handleControlResponse(line streamLine) {
	if len(line.Response) == 0 {
		return
	}
	var resp controlResponse
	if err := json.Unmarshal(line.Response, &resp); err != nil {
		return
	}
	s.mu.Lock()
	ch, ok := s.pending[resp.RequestID]
	if ok {
		delete(s.pending, resp.RequestID)
	}
	s.mu.Unlock()
	if ok {
		ch <- resp
	}
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
			Error:       fmt.Sprintf("claude runner exited: %s", detail),
			Recoverable: false,
		})
	}
	s.emit(agent.Event{Type: agent.EventExit, Reason: reason, BackendSessionID: backendID})
}
