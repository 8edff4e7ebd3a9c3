// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"context"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/session"
)

// Framed error codes, JSON-RPC flavored. Oversized frames are pinned to
// -32000 as part of the wire contract.
const (
	codeFrameTooLarge  = -32000
	codeUnknownCommand = -32601
	codeInvalidParams  = -32602
	codeCommandFailed  = -32603
	codeParseError     = -32700
)

// commandFrame is the inbound tagged union on the frame channel. Type
// selects which of the optional fields are read; unknown fields are
// ignored so clients can evolve ahead of the gateway.
type commandFrame struct {
	Type string `json:"type"`

	// ID, when present, is echoed back on the response or error frame.
	ID string `json:"id,omitempty"`

	// user_message
	Content *agent.MessageContent `json:"content,omitempty"`
	Options *agent.PromptOptions  `json:"options,omitempty"`

	// permission_response, cancel_permission
	ToolCallID string         `json:"toolCallId,omitempty"`
	OptionID   string         `json:"optionId,omitempty"`
	Answers    map[string]any `json:"answers,omitempty"`

	// set_model, pi_set_model
	Model string `json:"model,omitempty"`

	// set_permission_mode
	Mode string `json:"mode,omitempty"`

	// set_thinking_tokens
	Tokens int `json:"tokens,omitempty"`

	// pi_set_thinking_level
	Level string `json:"level,omitempty"`

	// pi_steer, pi_follow_up
	Text string `json:"text,omitempty"`

	// pi_compact
	Instructions string `json:"instructions,omitempty"`

	// pi_fork, pi_navigate
	EntryID string `json:"entryId,omitempty"`

	// opaque parameters for backend relay commands
	Params map[string]any `json:"params,omitempty"`
}

// responseFrame acknowledges a command, carrying the relay result when the
// command produced one.
type responseFrame struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Result any    `json:"result,omitempty"`
}

// errorFrame reports a per-command failure without closing the connection.
type errorFrame struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// commandHandler executes one frame-channel command against a runtime. The
// result is non-nil only for relay commands that return a payload.
type commandHandler func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error)

// commandHandlers dispatches the frame-channel command taxonomy. Unknown
// types are answered with a framed error by the caller; they never close
// the connection.
var commandHandlers = map[string]commandHandler{
	"user_message": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		if f.Content == nil {
			return nil, errors.NewValidationError("user_message requires content", nil)
		}
		return nil, rt.SendPrompt(ctx, *f.Content, f.Options)
	},
	"permission_response": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		if f.ToolCallID == "" {
			return nil, errors.NewValidationError("permission_response requires toolCallId", nil)
		}
		return nil, rt.RespondToPermission(ctx, f.ToolCallID, f.OptionID, f.Answers)
	},
	"cancel": func(ctx context.Context, rt *session.Runtime, _ *commandFrame) (any, error) {
		return nil, rt.CancelPrompt(ctx)
	},
	"interrupt": func(ctx context.Context, rt *session.Runtime, _ *commandFrame) (any, error) {
		return nil, rt.Interrupt(ctx)
	},
	"set_permission_mode": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		if f.Mode == "" {
			return nil, errors.NewValidationError("set_permission_mode requires mode", nil)
		}
		return nil, rt.SetPermissionMode(ctx, f.Mode)
	},
	"set_model": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		if f.Model == "" {
			return nil, errors.NewValidationError("set_model requires model", nil)
		}
		return nil, rt.SetModel(ctx, f.Model)
	},
	"set_thinking_tokens": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		if f.Tokens < 0 {
			return nil, errors.NewValidationError("set_thinking_tokens requires a non-negative token budget", nil)
		}
		return nil, rt.SetMaxThinkingTokens(ctx, f.Tokens)
	},
	"rewind_files":           relayCommand("rewind_files"),
	"get_mcp_status":         relayCommand("get_mcp_status"),
	"set_mcp_servers":        relayCommand("set_mcp_servers"),
	"get_account_info":       relayCommand("get_account_info"),
	"get_supported_models":   relayCommand("get_supported_models"),
	"get_supported_commands": relayCommand("get_supported_commands"),
	"update_config":          relayCommand("update_config"),

	"pi_steer": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		if f.Text == "" {
			return nil, errors.NewValidationError("pi_steer requires text", nil)
		}
		return nil, rt.Steer(ctx, f.Text)
	},
	"pi_follow_up": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		if f.Text == "" {
			return nil, errors.NewValidationError("pi_follow_up requires text", nil)
		}
		return nil, rt.FollowUp(ctx, f.Text)
	},
	"pi_compact": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		return nil, rt.Compact(ctx, f.Instructions)
	},
	"pi_fork": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		if f.EntryID == "" {
			return nil, errors.NewValidationError("pi_fork requires entryId", nil)
		}
		return nil, rt.Fork(ctx, f.EntryID)
	},
	"pi_navigate": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		if f.EntryID == "" {
			return nil, errors.NewValidationError("pi_navigate requires entryId", nil)
		}
		return nil, rt.Navigate(ctx, f.EntryID)
	},
	"pi_set_model": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		if f.Model == "" {
			return nil, errors.NewValidationError("pi_set_model requires model", nil)
		}
		return nil, rt.SetModel(ctx, f.Model)
	},
	"pi_cycle_model": func(ctx context.Context, rt *session.Runtime, _ *commandFrame) (any, error) {
		return nil, rt.CycleModel(ctx)
	},
	"pi_set_thinking_level": func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		if f.Level == "" {
			return nil, errors.NewValidationError("pi_set_thinking_level requires level", nil)
		}
		return nil, rt.SetThinkingLevel(ctx, f.Level)
	},
	"pi_cycle_thinking": func(ctx context.Context, rt *session.Runtime, _ *commandFrame) (any, error) {
		return nil, rt.CycleThinkingLevel(ctx)
	},
	"pi_new_session": func(ctx context.Context, rt *session.Runtime, _ *commandFrame) (any, error) {
		return nil, rt.NewConversation(ctx)
	},
	"pi_get_tree":     relayCommand("pi_get_tree"),
	"pi_get_forkable": relayCommand("pi_get_forkable"),
	"pi_get_stats":    relayCommand("pi_get_stats"),
	"pi_get_models":   relayCommand("pi_get_models"),
}

// relayCommand builds a handler that forwards an opaque operation to the
// backend, keyed by the command type that triggered it.
func relayCommand(op string) commandHandler {
	return func(ctx context.Context, rt *session.Runtime, f *commandFrame) (any, error) {
		return rt.Request(ctx, op, f.Params)
	}
}

// frameErrorCode maps a command failure to its framed error code.
func frameErrorCode(err error) int {
	if errors.IsValidation(err) {
		return codeInvalidParams
	}
	return codeCommandFailed
}
