// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package pi

import (
	"encoding/json"

	"github.com/aperturehq/aperture/pkg/agent"
)

// rpcCommand frames one id-correlated command on the runner's stdin. The
// runner answers every command with a response line carrying the same id.
type rpcCommand struct {
	Type string `json:"type"`
	ID   string `json:"id"`

	// prompt, steer, follow_up
	Message *agent.MessageContent `json:"message,omitempty"`

	// set_model
	Model string `json:"model,omitempty"`

	// set_thinking_level
	Level string `json:"level,omitempty"`

	// set_permission_mode
	Mode string `json:"mode,omitempty"`

	// compact
	Instructions string `json:"instructions,omitempty"`

	// fork, navigate
	EntryID string `json:"entryId,omitempty"`

	// permission
	ToolCallID string         `json:"toolCallId,omitempty"`
	OptionID   string         `json:"optionId,omitempty"`
	Answers    map[string]any `json:"answers,omitempty"`

	// generic operations (get_tree, get_stats, ...)
	Params map[string]any `json:"params,omitempty"`
}

// rpcLine is one parsed NDJSON line from the runner's stdout. Response
// lines answer commands; everything else is a broadcast agent event.
type rpcLine struct {
	Type string `json:"type"`

	// response
	ID   string          `json:"id,omitempty"`
	OK   bool            `json:"ok,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`

	// response and error events share the error field
	Error string `json:"error,omitempty"`

	// ready
	SessionID      string `json:"sessionId,omitempty"`
	Model          string `json:"model,omitempty"`
	ThinkingLevel  string `json:"thinkingLevel,omitempty"`
	PermissionMode string `json:"permissionMode,omitempty"`

	// text_delta, thinking_delta
	Delta string `json:"delta,omitempty"`

	// message
	Message *rpcMessage `json:"message,omitempty"`

	// tool_start, tool_end
	ToolCallID string          `json:"toolCallId,omitempty"`
	Name       string          `json:"name,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	IsError    bool            `json:"isError,omitempty"`

	// permission_request carries the full request envelope;
	// permission_resolved reuses toolCallId plus optionId.
	Permission *agent.PermissionRequest `json:"permission,omitempty"`
	OptionID   string                   `json:"optionId,omitempty"`

	// turn_end
	Usage *rpcUsage `json:"usage,omitempty"`

	// error
	Recoverable bool `json:"recoverable,omitempty"`
}

// rpcMessage is a complete message in the gateway's content shape.
type rpcMessage struct {
	Role    string               `json:"role"`
	Content agent.MessageContent `json:"content"`
}

// rpcUsage carries per-turn token accounting.
type rpcUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
}

// stateData is the response payload of state-changing commands.
type stateData struct {
	SessionID     string `json:"sessionId,omitempty"`
	Model         string `json:"model,omitempty"`
	ThinkingLevel string `json:"thinkingLevel,omitempty"`
}
