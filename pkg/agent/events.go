// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import "encoding/json"

// Event types emitted by backends and fanned out by session runtimes.
// Chunk events are live-only; the rest are also persisted to the audit log.
const (
	// EventStatus carries a Status snapshot, emitted on entering idle.
	EventStatus = "status"

	// EventMessageChunk is one incremental assistant text delta.
	EventMessageChunk = "message_chunk"

	// EventThinkingChunk is one incremental thinking delta.
	EventThinkingChunk = "thinking_chunk"

	// EventToolCallStart and EventToolCallEnd bracket a tool invocation.
	EventToolCallStart = "tool_call_start"
	EventToolCallEnd   = "tool_call_end"

	// EventMessage carries one complete assembled message.
	EventMessage = "message"

	// EventPromptComplete terminates a turn.
	EventPromptComplete = "prompt_complete"

	// EventPermissionRequest asks the client to approve a tool call.
	EventPermissionRequest = "permission_request"

	// EventPermissionResolved reports the outcome of a permission request.
	EventPermissionResolved = "permission_resolved"

	// EventIdle reports that the idle timeout expired.
	EventIdle = "idle"

	// EventExit is the final event of a session. Exactly one is emitted.
	EventExit = "exit"

	// EventError reports a backend failure. Recoverable errors return the
	// session to idle; fatal ones are followed by exit.
	EventError = "error"

	// EventSubscriberDropped is delivered to remaining subscribers when a
	// slow subscriber is disconnected.
	EventSubscriberDropped = "subscriber_dropped"

	// EventConnected is the first frame on a freshly attached event channel.
	EventConnected = "connected"

	// EventReplay tags state snapshots replayed to a reconnecting
	// subscriber ahead of live events.
	EventReplay = "replay"
)

// Event is the tagged union fanned out to subscribers. Type selects which
// of the optional fields are meaningful.
type Event struct {
	Type string `json:"type"`

	// Seq is the audit sequence number for persisted events. Live-only
	// chunk events carry no seq.
	Seq int64 `json:"seq,omitempty"`

	// message_chunk, thinking_chunk
	Delta string `json:"delta,omitempty"`

	// message
	Role    string          `json:"role,omitempty"`
	Content *MessageContent `json:"content,omitempty"`

	// tool_call_start, tool_call_end
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	ToolInput  json.RawMessage `json:"toolInput,omitempty"`
	ToolOutput json.RawMessage `json:"toolOutput,omitempty"`

	// permission_request, permission_resolved
	Permission *PermissionRequest `json:"permission,omitempty"`
	OptionID   string             `json:"optionId,omitempty"`

	// status, prompt_complete
	Status *Status `json:"status,omitempty"`
	Usage  *Usage  `json:"usage,omitempty"`

	// error
	Error       string `json:"error,omitempty"`
	Recoverable bool   `json:"recoverable,omitempty"`

	// idle, exit, subscriber_dropped
	Reason string `json:"reason,omitempty"`

	// exit, when the backend assigned one
	BackendSessionID string `json:"backendSessionId,omitempty"`

	// status changes reported by the backend
	Model string `json:"model,omitempty"`
}

// Usage is the token accounting a backend reports at turn end.
type Usage struct {
	InputTokens  int64 `json:"inputTokens,omitempty"`
	OutputTokens int64 `json:"outputTokens,omitempty"`
	TotalTokens  int64 `json:"totalTokens,omitempty"`
}

// Persistent reports whether events of this type are written to the audit
// log. Incremental chunks are live-only.
func (e Event) Persistent() bool {
	switch e.Type {
	case EventMessageChunk, EventThinkingChunk, EventStatus, EventConnected, EventReplay:
		return false
	default:
		return true
	}
}

// Terminal reports whether the event ends the session.
func (e Event) Terminal() bool {
	return e.Type == EventExit
}
