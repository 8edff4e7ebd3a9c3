// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent defines the backend abstraction over coding-agent SDKs and
// the wire types the gateway exchanges with them. Backends are opaque: the
// gateway never interprets model output, it only routes prompts in and
// events out.
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/aperturehq/aperture/pkg/errors"
)

// Kind identifies an agent backend family.
type Kind string

// Supported backend kinds.
const (
	KindClaude Kind = "claude_sdk"
	KindPi     Kind = "pi_sdk"
)

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }

// ParseKind validates an agent kind received from a client.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindClaude, KindPi:
		return k, nil
	default:
		return "", errors.NewValidationError(fmt.Sprintf("unknown agent kind %q", s), nil)
	}
}

// AuthMode selects how a session authenticates against its provider.
type AuthMode string

// Auth modes.
const (
	AuthModeAPIKey AuthMode = "api_key"
	AuthModeOAuth  AuthMode = "oauth"
)

// APIKeyRef describes where a session's API key comes from.
type APIKeyRef string

// API key references.
const (
	APIKeyInline APIKeyRef = "inline"
	APIKeyStored APIKeyRef = "stored"
	APIKeyNone   APIKeyRef = "none"
)

// Provider keys accepted across backends. Each backend restricts this set
// further in ValidateAuth.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGoogle     = "google"
	ProviderGroq       = "groq"
	ProviderOpenRouter = "openrouter"
)

// SessionAuth carries the credential choice made at session creation. The
// cleartext APIKey is consumed during creation and never persisted.
type SessionAuth struct {
	Mode               AuthMode  `json:"mode"`
	ProviderKey        string    `json:"providerKey,omitempty"`
	APIKeyRef          APIKeyRef `json:"apiKeyRef,omitempty"`
	APIKey             string    `json:"apiKey,omitempty"`
	StoredCredentialID string    `json:"storedCredentialId,omitempty"`
}

// Redacted returns a copy safe for persistence and logging.
func (a SessionAuth) Redacted() SessionAuth {
	a.APIKey = ""
	return a
}

// ResolvedCredential is the plaintext key handed to a backend at open time.
// It lives only on the stack of the creation path.
type ResolvedCredential struct {
	Provider string
	APIKey   string
}

// AuthPolicy is the gateway-level auth posture backends validate against.
type AuthPolicy struct {
	// HostedMode restricts interactive logins because no human can complete
	// a browser flow on the gateway host.
	HostedMode bool

	// AllowInteractive permits oauth sessions even in hosted mode.
	AllowInteractive bool

	// VaultEnabled reports whether stored credentials can be resolved.
	VaultEnabled bool
}

// Readiness is the result of a backend installation probe.
type Readiness struct {
	Ready      bool   `json:"ready"`
	BinaryPath string `json:"binaryPath,omitempty"`
	Version    string `json:"version,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SessionConfig carries everything a backend needs to open a session. Env
// is the fully built, isolated environment from BuildSessionEnv; backends
// pass it to the child process verbatim.
type SessionConfig struct {
	SessionID        string
	BackendSessionID string
	WorkingDir       string
	Model            string
	PermissionMode   string
	Env              []string
}

// Resuming reports whether the config restores an earlier backend session.
func (c SessionConfig) Resuming() bool { return c.BackendSessionID != "" }

//go:generate mockgen -destination=mocks/mock_agent.go -package=mocks -source=agent.go Backend,BackendSession

// Backend is one agent SDK family. Implementations validate auth at session
// creation, never at first use.
type Backend interface {
	// Name returns the human-readable backend name.
	Name() string

	// Kind returns the backend's kind tag.
	Kind() Kind

	// EnsureInstalled probes for the backend binary and reports readiness.
	EnsureInstalled(ctx context.Context) Readiness

	// ValidateAuth rejects unusable auth combinations up front.
	ValidateAuth(auth SessionAuth, policy AuthPolicy) error

	// Open starts a backend session. key is nil for oauth sessions.
	Open(ctx context.Context, cfg SessionConfig, key *ResolvedCredential) (BackendSession, error)
}

// Handler consumes backend events. The backend guarantees a handler is
// never invoked concurrently with itself and sees events in arrival order.
type Handler func(Event)

// BackendSession is the narrow, async-but-ordered interaction contract a
// running backend exposes. Setters are advisory: backends that do not
// support one treat it as a no-op rather than an error.
type BackendSession interface {
	// Prompt enqueues one user turn.
	Prompt(ctx context.Context, content MessageContent, opts *PromptOptions) error

	// Steer interrupts the current generation with redirecting content.
	// Valid only while streaming.
	Steer(ctx context.Context, text string) error

	// FollowUp enqueues a message delivered after the current turn ends.
	// Valid only while streaming.
	FollowUp(ctx context.Context, text string) error

	// Cancel aborts the current turn.
	Cancel(ctx context.Context) error

	// Interrupt aborts the current generation without discarding the turn.
	Interrupt(ctx context.Context) error

	SetModel(ctx context.Context, model string) error
	SetPermissionMode(ctx context.Context, mode string) error
	SetMaxThinkingTokens(ctx context.Context, tokens int) error
	SetThinkingLevel(ctx context.Context, level string) error
	CycleModel(ctx context.Context) error
	CycleThinkingLevel(ctx context.Context) error

	// Compact asks the backend to summarize and trim its history.
	Compact(ctx context.Context, instructions string) error

	// Fork, Navigate and NewSession are conversation-tree operations.
	// Backends without a tree reject them.
	Fork(ctx context.Context, entryID string) error
	Navigate(ctx context.Context, entryID string) error
	NewSession(ctx context.Context) error

	// RespondToPermission answers a pending permission request.
	RespondToPermission(ctx context.Context, toolCallID, optionID string, answers map[string]any) error

	// CancelPermission withdraws a pending permission request.
	CancelPermission(ctx context.Context, toolCallID string) error

	// Request performs a backend-defined operation keyed by the inbound
	// command type that triggered it (mcp status, account info, supported
	// models, file rewind, and similar). The reply payload is opaque to the
	// gateway.
	Request(ctx context.Context, op string, params map[string]any) (any, error)

	// Subscribe registers a handler for backend events and returns its
	// unsubscribe function. Subscribe is the only way to consume events.
	Subscribe(h Handler) (unsubscribe func())

	// Status returns a point-in-time snapshot.
	Status() Status

	// Dispose releases OS resources. The final exit event is emitted
	// before Dispose returns.
	Dispose(ctx context.Context) error
}

// Status is a point-in-time backend snapshot.
type Status struct {
	Streaming        bool   `json:"streaming"`
	Model            string `json:"model,omitempty"`
	PermissionMode   string `json:"permissionMode,omitempty"`
	ThinkingLevel    string `json:"thinkingLevel,omitempty"`
	TokensUsed       int64  `json:"tokensUsed,omitempty"`
	Resumable        bool   `json:"resumable"`
	BackendSessionID string `json:"backendSessionId,omitempty"`
}

// PromptOptions tune a single prompt turn.
type PromptOptions struct {
	Model             string         `json:"model,omitempty"`
	MaxThinkingTokens int            `json:"maxThinkingTokens,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// PermissionOption is one choice an agent presents for a tool call.
type PermissionOption struct {
	OptionID string `json:"optionId"`
	Label    string `json:"label,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// PermissionRequest describes a tool call awaiting user approval. Keyed by
// (sessionId, toolCallId) with an exactly-once lifecycle.
type PermissionRequest struct {
	ToolCallID  string             `json:"toolCallId"`
	ToolName    string             `json:"toolName,omitempty"`
	Description string             `json:"description,omitempty"`
	Input       map[string]any     `json:"input,omitempty"`
	Options     []PermissionOption `json:"options"`
}

// Registry holds the configured backends keyed by kind.
type Registry struct {
	mu       sync.RWMutex
	backends map[Kind]Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[Kind]Backend)}
}

// Register adds a backend, replacing any previous registration of the same
// kind.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Kind()] = b
}

// Get returns the backend for kind or a validation error.
func (r *Registry) Get(kind Kind) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[kind]
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("no backend registered for agent kind %q", kind), nil)
	}
	return b, nil
}

// Kinds returns the registered kinds in registration-independent order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.backends))
	for k := range r.backends {
		kinds = append(kinds, k)
	}
	return kinds
}

// ValidateAuth applies the auth rules shared by every backend. allowed is
// the backend's provider set.
func ValidateAuth(auth SessionAuth, allowed []string, policy AuthPolicy) error {
	switch auth.Mode {
	case AuthModeAPIKey:
	case AuthModeOAuth:
		if auth.APIKey != "" {
			return errors.NewValidationError("apiKey must not be set for oauth sessions", nil)
		}
		if policy.HostedMode && !policy.AllowInteractive {
			// Interactive login cannot run on the gateway host. The session
			// is admitted assuming login completed out-of-band.
			warnHostedOAuth(auth.ProviderKey)
		}
		return nil
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown auth mode %q", auth.Mode), nil)
	}

	if !providerAllowed(auth.ProviderKey, allowed) {
		return errors.NewValidationError(
			fmt.Sprintf("provider %q is not supported by this backend", auth.ProviderKey), nil)
	}

	switch auth.APIKeyRef {
	case APIKeyInline:
		if auth.APIKey == "" {
			return errors.NewValidationError("apiKeyRef=inline requires a non-empty apiKey", nil)
		}
		if auth.StoredCredentialID != "" {
			return errors.NewValidationError("storedCredentialId must not be set when apiKeyRef=inline", nil)
		}
	case APIKeyStored:
		if auth.APIKey != "" {
			return errors.NewValidationError("apiKey must not be set when apiKeyRef=stored", nil)
		}
		if auth.StoredCredentialID == "" {
			return errors.NewValidationError("apiKeyRef=stored requires storedCredentialId", nil)
		}
		if !policy.VaultEnabled {
			return errors.NewValidationError("stored credentials require a configured vault master key", nil)
		}
	case APIKeyNone:
		if auth.APIKey != "" {
			return errors.NewValidationError("apiKey requires apiKeyRef=inline", nil)
		}
		return errors.NewValidationError("auth mode api_key requires apiKeyRef inline or stored", nil)
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown apiKeyRef %q", auth.APIKeyRef), nil)
	}
	return nil
}

func providerAllowed(provider string, allowed []string) bool {
	for _, p := range allowed {
		if p == provider {
			return true
		}
	}
	return false
}
