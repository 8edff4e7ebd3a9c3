// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package claude

import (
	"encoding/json"

	"github.com/aperturehq/aperture/pkg/agent"
)

// streamLine is one parsed NDJSON line from the runner's stdout.
type streamLine struct {
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`

	// result fields
	Result  string          `json:"result,omitempty"`
	IsError bool            `json:"is_error,omitempty"`
	Errors  []string        `json:"errors,omitempty"`
	CostUSD float64         `json:"total_cost_usd,omitempty"`
	Usage   json.RawMessage `json:"usage,omitempty"`

	// system init fields
	Model          string `json:"model,omitempty"`
	PermissionMode string `json:"permissionMode,omitempty"`

	// control traffic
	RequestID string          `json:"request_id,omitempty"`
	Request   json.RawMessage `json:"request,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
}

// wireMessage is the message body shared by assistant and user lines.
type wireMessage struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
	Usage   *wireUsage  `json:"usage,omitempty"`
}

// wireUsage carries token accounting in runner events.
type wireUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
}

func (u *wireUsage) total() int64 {
	if u == nil {
		return 0
	}
	return u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}

// wireBlock is a content block in the runner's snake_case shape.
type wireBlock struct {
	Type      string           `json:"type"`
	Text      string           `json:"text,omitempty"`
	Thinking  string           `json:"thinking,omitempty"`
	ID        string           `json:"id,omitempty"`
	Name      string           `json:"name,omitempty"`
	Input     json.RawMessage  `json:"input,omitempty"`
	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   json.RawMessage  `json:"content,omitempty"`
	IsError   bool             `json:"is_error,omitempty"`
	Source    *wireImageSource `json:"source,omitempty"`
}

// wireImageSource is the base64 image envelope the runner expects.
type wireImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// stdinUserMessage frames one user turn for the runner's stdin.
type stdinUserMessage struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id,omitempty"`
	Message   stdinMessageBody `json:"message"`
}

type stdinMessageBody struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
}

// controlRequest frames an outbound control operation.
type controlRequest struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Request   map[string]any `json:"request"`
}

// controlResponse is the inner payload of an inbound control_response line.
type controlResponse struct {
	Subtype   string          `json:"subtype"`
	RequestID string          `json:"request_id"`
	Response  json.RawMessage `json:"response,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// controlResult frames our reply to an inbound control_request.
type controlResult struct {
	Type     string            `json:"type"`
	Response controlResultBody `json:"response"`
}

type controlResultBody struct {
	Subtype   string `json:"subtype"`
	RequestID string `json:"request_id"`
	Response  any    `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}

// permissionPayload is the body of a can_use_tool control request.
type permissionPayload struct {
	Subtype   string         `json:"subtype"`
	ToolName  string         `json:"tool_name"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
}

// permissionDecision is the inner response to a can_use_tool request.
type permissionDecision struct {
	Behavior     string         `json:"behavior"`
	UpdatedInput map[string]any `json:"updatedInput,omitempty"`
	Message      string         `json:"message,omitempty"`
}

// streamInner is the payload of a stream_event line.
type streamInner struct {
	Type         string          `json:"type"`
	ContentBlock json.RawMessage `json:"content_block,omitempty"`
	Delta        json.RawMessage `json:"delta,omitempty"`
	Message      json.RawMessage `json:"message,omitempty"`
}

// streamDelta is the delta payload of a content_block_delta event.
type streamDelta struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

// toWireBlocks converts gateway content to the runner's block shape.
func toWireBlocks(content agent.MessageContent) []wireBlock {
	if !content.IsBlocks() {
		return []wireBlock{{Type: "text", Text: content.PlainText()}}
	}
	out := make([]wireBlock, 0, len(content.Blocks))
	for _, b := range content.Blocks {
		out = append(out, toWireBlock(b))
	}
	return out
}

func toWireBlock(b agent.ContentBlock) wireBlock {
	switch b.Type {
	case agent.BlockTypeText:
		return wireBlock{Type: "text", Text: b.Text}
	case agent.BlockTypeThinking:
		return wireBlock{Type: "thinking", Thinking: b.Thinking}
	case agent.BlockTypeToolUse:
		return wireBlock{Type: "tool_use", ID: b.ID, Name: b.Name, Input: b.Input}
	case agent.BlockTypeToolResult:
		return wireBlock{Type: "tool_result", ToolUseID: b.ToolUseID, Content: b.Content}
	case agent.BlockTypeImage:
		return wireBlock{Type: "image", Source: &wireImageSource{
			Type:      "base64",
			MediaType: b.MimeType,
			Data:      b.Data,
		}}
	default:
		return wireBlock{Type: "text", Text: b.Text}
	}
}

// fromWireBlocks converts runner blocks to gateway content.
func fromWireBlocks(blocks []wireBlock) agent.MessageContent {
	out := make([]agent.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, fromWireBlock(b))
	}
	return agent.Blocks(out...)
}

func fromWireBlock(b wireBlock) agent.ContentBlock {
	cb := agent.ContentBlock{Type: b.Type}
	switch b.Type {
	case "text":
		cb.Text = b.Text
	case "thinking":
		cb.Thinking = b.Thinking
	case "tool_use":
		cb.ID = b.ID
		cb.Name = b.Name
		cb.Input = b.Input
	case "tool_result":
		cb.ToolUseID = b.ToolUseID
		cb.Content = b.Content
	case "image":
		if b.Source != nil {
			cb.MimeType = b.Source.MediaType
			cb.Data = b.Source.Data
		}
	default:
		cb.Type = agent.BlockTypeText
		cb.Text = b.Text
	}
	return cb
}
