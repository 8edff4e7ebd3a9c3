// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/config"
	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/logger"
	"github.com/aperturehq/aperture/pkg/store"
	"github.com/aperturehq/aperture/pkg/telemetry"
	"github.com/aperturehq/aperture/pkg/vault"
	"github.com/aperturehq/aperture/pkg/worktree"
)

// ManagerOptions wires a Manager to its collaborators. Vault may be nil when
// no master key is configured; stored-credential sessions are then rejected
// at validation. Metrics may be nil.
type ManagerOptions struct {
	Config   *config.Config
	Store    store.Store
	Vault    *vault.Vault
	Registry *agent.Registry
	Broker   worktree.Broker
	Metrics  *telemetry.Metrics
}

// Manager admits, creates, restores and terminates sessions. It owns the map
// of live runtimes and enforces the concurrency cap across creations and
// restores.
type Manager struct {
	cfg      *config.Config
	store    store.Store
	vault    *vault.Vault
	registry *agent.Registry
	broker   worktree.Broker
	metrics  *telemetry.Metrics

	// environ supplies the parent environment for session processes.
	// Overridable for tests.
	environ func() []string

	mu       sync.RWMutex
	runtimes map[string]*Runtime
	creating int
}

// NewManager builds a manager with an empty runtime table.
func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		cfg:      opts.Config,
		store:    opts.Store,
		vault:    opts.Vault,
		registry: opts.Registry,
		broker:   opts.Broker,
		metrics:  opts.Metrics,
		environ:  os.Environ,
		runtimes: make(map[string]*Runtime),
	}
}

// CreateOptions is the session creation payload.
type CreateOptions struct {
	Agent          string            `json:"agent"`
	Auth           agent.SessionAuth `json:"auth"`
	WorkspaceID    string            `json:"workspaceId,omitempty"`
	Model          string            `json:"model,omitempty"`
	PermissionMode string            `json:"permissionMode,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
}

// Create runs the admission pipeline: validate, resolve the credential,
// prepare the worktree, persist the record, spawn the backend and start the
// runtime. Failures after persistence roll the record and worktree back so
// no orphaned rows survive a failed creation.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*store.Session, error) {
	kind, err := agent.ParseKind(opts.Agent)
	if err != nil {
		return nil, err
	}
	backend, err := m.registry.Get(kind)
	if err != nil {
		return nil, err
	}
	if err := backend.ValidateAuth(opts.Auth, m.authPolicy()); err != nil {
		return nil, err
	}
	if err := agent.ValidateEnvOverrides(kind, opts.Auth, opts.Env); err != nil {
		return nil, err
	}
	cred, err := m.resolveCredential(opts.Auth)
	if err != nil {
		return nil, err
	}

	release, err := m.reserveSlot()
	if err != nil {
		return nil, err
	}
	defer release()

	id := uuid.NewString()
	sess := &store.Session{
		ID:     id,
		Agent:  kind,
		Status: store.StatusActive,
		Auth:   opts.Auth.Redacted(),
		Env:    opts.Env,
		Model:  opts.Model,
	}

	// Workspace sessions get an isolated worktree on a session-scoped
	// branch before anything is persisted.
	var repoRoot, branch string
	if opts.WorkspaceID != "" {
		ws, err := m.store.GetWorkspace(ctx, opts.WorkspaceID)
		if err != nil {
			if stderrors.Is(err, store.ErrNotFound) {
				return nil, errors.NewResourceError(fmt.Sprintf("workspace %q not found", opts.WorkspaceID), err)
			}
			return nil, err
		}
		branch = worktree.BranchForSession(id)
		wt, err := m.broker.EnsureWorktree(ctx, worktree.EnsureOptions{
			RepoRoot: ws.RepoRoot,
			Branch:   branch,
		})
		if err != nil {
			return nil, err
		}
		repoRoot = ws.RepoRoot
		sess.WorkspaceID = ws.ID
		sess.WorktreePath = wt.Path
	}

	if err := m.store.SaveSession(ctx, sess); err != nil {
		m.removeWorktree(repoRoot, branch)
		return nil, err
	}

	if sess.WorkspaceID != "" {
		bind := &store.WorkspaceAgent{
			WorkspaceID:  sess.WorkspaceID,
			SessionID:    id,
			Branch:       branch,
			WorktreePath: sess.WorktreePath,
		}
		if err := m.store.BindWorkspaceAgent(ctx, bind); err != nil {
			m.rollbackCreate(sess, repoRoot, branch)
			return nil, err
		}
	}

	env := agent.BuildSessionEnv(m.environ(), kind, opts.Auth, cred, opts.Env)
	bs, err := backend.Open(ctx, agent.SessionConfig{
		SessionID:      id,
		WorkingDir:     sess.WorktreePath,
		Model:          opts.Model,
		PermissionMode: opts.PermissionMode,
		Env:            env,
	}, cred)
	if err != nil {
		m.rollbackCreate(sess, repoRoot, branch)
		return nil, err
	}

	rt, err := m.startRuntime(ctx, id, kind, bs)
	if err != nil {
		m.rollbackCreate(sess, repoRoot, branch)
		return nil, err
	}

	m.install(rt)
	m.metrics.SessionCreated(string(kind))
	m.logLifecycle(id, store.EventSessionCreated, map[string]any{"agent": kind})
	logger.Infof("created session %s (agent %s)", id, kind)
	return sess, nil
}

// Connect returns the runtime for sessionID, lazily restoring it from the
// store when the gateway restarted underneath the session. The second return
// reports whether a restore happened.
func (m *Manager) Connect(ctx context.Context, sessionID string) (*Runtime, bool, error) {
	m.mu.RLock()
	rt, ok := m.runtimes[sessionID]
	m.mu.RUnlock()
	if ok {
		return rt, false, nil
	}

	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, false, errors.NewResourceError(fmt.Sprintf("session %q not found", sessionID), err)
		}
		return nil, false, err
	}
	if !sess.Resumable() {
		return nil, false, errors.NewTransitionError(
			fmt.Sprintf("session %q has ended and cannot be resumed", sessionID), nil)
	}

	rt, err = m.restore(ctx, sess)
	if err != nil {
		return nil, false, err
	}
	return rt, true, nil
}

// restore revives a persisted session against its backend. Restores compete
// for the same concurrency slots as creations, and the whole operation is
// bounded by the RPC timeout so a reconnecting client is not held past it.
func (m *Manager) restore(ctx context.Context, sess *store.Session) (*Runtime, error) {
	m.mu.RLock()
	if rt, ok := m.runtimes[sess.ID]; ok {
		m.mu.RUnlock()
		return rt, nil
	}
	m.mu.RUnlock()

	if sess.Auth.Mode == agent.AuthModeAPIKey && sess.Auth.APIKeyRef == agent.APIKeyInline {
		// Inline keys are consumed at creation and never persisted, so
		// there is nothing to re-open the backend with.
		return nil, errors.NewResourceError(
			fmt.Sprintf("session %q used an inline API key and cannot be restored; create a new session", sess.ID), nil)
	}

	backend, err := m.registry.Get(sess.Agent)
	if err != nil {
		return nil, err
	}
	cred, err := m.resolveCredential(sess.Auth)
	if err != nil {
		return nil, err
	}

	release, err := m.reserveSlot()
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.RPCRequestTimeout)
	defer cancel()

	// Mark the row active first. A concurrent terminate between the
	// resumability check and here surfaces as ErrNotResumable.
	if err := m.store.ReviveSession(ctx, sess.ID); err != nil {
		if stderrors.Is(err, store.ErrNotResumable) {
			return nil, errors.NewTransitionError(
				fmt.Sprintf("session %q has ended and cannot be resumed", sess.ID), err)
		}
		return nil, err
	}

	env := agent.BuildSessionEnv(m.environ(), sess.Agent, sess.Auth, cred, sess.Env)
	bs, err := backend.Open(ctx, agent.SessionConfig{
		SessionID:        sess.ID,
		BackendSessionID: sess.BackendSessionID,
		WorkingDir:       sess.WorktreePath,
		Model:            sess.Model,
		Env:              env,
	}, cred)
	if err != nil {
		m.demoteAfterFailedRestore(sess.ID)
		return nil, err
	}

	rt, err := m.startRuntime(ctx, sess.ID, sess.Agent, bs)
	if err != nil {
		m.demoteAfterFailedRestore(sess.ID)
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.runtimes[sess.ID]; ok {
		// Lost a connect race; keep the winner and fold this attempt.
		m.mu.Unlock()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), disposeTimeout)
			defer cancel()
			_ = rt.Shutdown(ctx)
		}()
		return existing, nil
	}
	m.runtimes[sess.ID] = rt
	m.metrics.SetLiveSessions(len(m.runtimes))
	m.mu.Unlock()

	logger.Infof("restored session %s (agent %s, backend session %s)", sess.ID, sess.Agent, sess.BackendSessionID)
	return rt, nil
}

// Get returns the live runtime for sessionID, if any.
func (m *Manager) Get(sessionID string) (*Runtime, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt, ok := m.runtimes[sessionID]
	return rt, ok
}

// LiveCount reports how many runtimes are live or being created.
func (m *Manager) LiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runtimes) + m.creating
}

// Terminate ends a session whether or not it is live. Ended sessions report
// not-found semantics through the store.
func (m *Manager) Terminate(ctx context.Context, sessionID string) error {
	m.mu.RLock()
	rt, ok := m.runtimes[sessionID]
	m.mu.RUnlock()
	if ok {
		return rt.Terminate(ctx)
	}

	err := m.store.EndSession(ctx, sessionID, store.ReasonTerminated)
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NewResourceError(fmt.Sprintf("session %q not found", sessionID), err)
	}
	return err
}

// TerminateAll disposes every live runtime concurrently, bounded by ctx.
// Runtimes are shut down with the restart reason so their sessions stay
// resumable after the gateway comes back.
func (m *Manager) TerminateAll(ctx context.Context) error {
	m.mu.RLock()
	runtimes := make([]*Runtime, 0, len(m.runtimes))
	for _, rt := range m.runtimes {
		runtimes = append(runtimes, rt)
	}
	m.mu.RUnlock()

	if len(runtimes) == 0 {
		return nil
	}
	logger.Infof("shutting down %d live sessions", len(runtimes))

	var g errgroup.Group
	for _, rt := range runtimes {
		g.Go(func() error {
			return rt.Shutdown(ctx)
		})
	}
	return g.Wait()
}

// RecoverStartup demotes sessions left active by a previous process. Called
// once at boot before the listener opens.
func (m *Manager) RecoverStartup(ctx context.Context) error {
	n, err := m.store.RecoverStartup(ctx)
	if err != nil {
		return fmt.Errorf("recovering interrupted sessions: %w", err)
	}
	if n > 0 {
		logger.Infof("marked %d interrupted sessions as resumable", n)
	}
	return nil
}

// reserveSlot admits one creation or restore against the concurrency cap.
// The returned release must run once the runtime is installed or abandoned;
// installed runtimes hold the slot through the runtimes map instead.
func (m *Manager) reserveSlot() (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit := m.cfg.MaxConcurrentSessions
	if live := len(m.runtimes) + m.creating; live >= limit {
		return nil, errors.NewAdmissionError(
			fmt.Sprintf("session limit reached (%d live, max %d)", live, limit), nil)
	}
	m.creating++
	return func() {
		m.mu.Lock()
		m.creating--
		m.mu.Unlock()
	}, nil
}

// startRuntime wraps a freshly opened backend session in a runtime. On start
// failure the backend is disposed before the error propagates.
func (m *Manager) startRuntime(ctx context.Context, id string, kind agent.Kind, bs agent.BackendSession) (*Runtime, error) {
	rt := NewRuntime(RuntimeConfig{
		SessionID:   id,
		Kind:        kind,
		Backend:     bs,
		Store:       m.store,
		Metrics:     m.metrics,
		IdleTimeout: m.cfg.SessionIdleTimeout,
		RPCTimeout:  m.cfg.RPCRequestTimeout,
		OnEnded:     m.release,
	})
	if err := rt.Start(ctx); err != nil {
		_ = bs.Dispose(ctx)
		return nil, err
	}
	return rt, nil
}

func (m *Manager) install(rt *Runtime) {
	m.mu.Lock()
	m.runtimes[rt.SessionID()] = rt
	m.metrics.SetLiveSessions(len(m.runtimes))
	m.mu.Unlock()
}

// release drops an ended runtime from the live table. Runs via OnEnded after
// the exit event has been delivered.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	delete(m.runtimes, sessionID)
	m.metrics.SetLiveSessions(len(m.runtimes))
	m.mu.Unlock()
}

func (m *Manager) authPolicy() agent.AuthPolicy {
	return agent.AuthPolicy{
		HostedMode:       m.cfg.HostedMode,
		AllowInteractive: m.cfg.AllowInteractiveAuth,
		VaultEnabled:     m.cfg.VaultEnabled() && m.vault != nil,
	}
}

// resolveCredential produces the plaintext key handed to the backend at open
// time. Oauth sessions carry none; stored references resolve through the
// vault and must match the session's provider.
func (m *Manager) resolveCredential(auth agent.SessionAuth) (*agent.ResolvedCredential, error) {
	if auth.Mode == agent.AuthModeOAuth {
		return nil, nil
	}
	switch auth.APIKeyRef {
	case agent.APIKeyInline:
		return &agent.ResolvedCredential{Provider: auth.ProviderKey, APIKey: auth.APIKey}, nil
	case agent.APIKeyStored:
		if m.vault == nil {
			return nil, errors.NewResourceError("credential vault is not configured", nil)
		}
		cred, err := m.vault.Get(auth.StoredCredentialID)
		if err != nil {
			return nil, errors.NewResourceError(
				fmt.Sprintf("stored credential %q is not available", auth.StoredCredentialID), err)
		}
		if cred.Provider != auth.ProviderKey {
			return nil, errors.NewValidationError(
				fmt.Sprintf("stored credential %q belongs to provider %q, not %q",
					auth.StoredCredentialID, cred.Provider, auth.ProviderKey), nil)
		}
		return &agent.ResolvedCredential{Provider: cred.Provider, APIKey: cred.APIKey}, nil
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown apiKeyRef %q", auth.APIKeyRef), nil)
	}
}

// rollbackCreate undoes the persisted record and worktree after a failure
// later in the pipeline. Runs on fresh contexts so a canceled request still
// cleans up.
func (m *Manager) rollbackCreate(sess *store.Session, repoRoot, branch string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.store.DeleteSession(ctx, sess.ID); err != nil && !stderrors.Is(err, store.ErrNotFound) {
		logger.Warnf("rolling back session %s: %v", sess.ID, err)
	}
	m.removeWorktree(repoRoot, branch)
}

func (m *Manager) removeWorktree(repoRoot, branch string) {
	if repoRoot == "" || branch == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), disposeTimeout)
	defer cancel()
	if err := m.broker.Remove(ctx, repoRoot, branch); err != nil {
		logger.Warnf("rolling back worktree for branch %s: %v", branch, err)
	}
}

// demoteAfterFailedRestore returns a revived row to its resumable state so
// the next connect can retry.
func (m *Manager) demoteAfterFailedRestore(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.store.EndSession(ctx, sessionID, store.ReasonServerRestart); err != nil {
		logger.Warnf("session %s: demoting after failed restore: %v", sessionID, err)
	}
}

// logLifecycle appends a manager-level audit event.
func (m *Manager) logLifecycle(sessionID, eventType string, payload map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			logger.Warnf("session %s: encoding %s audit payload: %v", sessionID, eventType, err)
		} else {
			raw = b
		}
	}
	if _, err := m.store.LogEvent(ctx, sessionID, eventType, raw); err != nil {
		logger.Warnf("session %s: logging %s: %v", sessionID, eventType, err)
	}
}
