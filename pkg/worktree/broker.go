// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package worktree brokers per-session isolated git checkouts. Repository
// inspection happens in-process; worktree mutation is delegated to an
// external helper so the gateway never shells out itself.
package worktree

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/aperturehq/aperture/pkg/errors"
)

// branchPrefix namespaces every session branch.
const branchPrefix = "aperture/"

// BranchForSession derives the worktree branch for a session id.
func BranchForSession(sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return branchPrefix + short
}

// Worktree is one isolated checkout.
type Worktree struct {
	Branch string `json:"branch"`
	Path   string `json:"worktreePath"`
}

// RepoInfo describes a verified repository.
type RepoInfo struct {
	DefaultBranch string `json:"defaultBranch"`
}

// EnsureOptions parameterize EnsureWorktree.
type EnsureOptions struct {
	RepoRoot string

	// Branch to check out; created if it does not exist.
	Branch string

	// BaseDir holds the worktree directories. Defaults to
	// <repoRoot>/.aperture-worktrees.
	BaseDir string

	// PathTemplate names the worktree directory inside BaseDir. {repo} and
	// {branch} are substituted; defaults to "{branch}".
	PathTemplate string
}

// Helper is the native git-worktree helper. The gateway only defines the
// interface; the binding is injected at boot.
type Helper interface {
	// AddWorktree creates a worktree for branch at path.
	AddWorktree(ctx context.Context, repoRoot, branch, path string) error

	// ListWorktrees returns the repository's worktrees.
	ListWorktrees(ctx context.Context, repoRoot string) ([]Worktree, error)

	// RemoveWorktree removes the worktree for branch.
	RemoveWorktree(ctx context.Context, repoRoot, branch string) error
}

// Broker is the session manager's view of worktree operations.
type Broker interface {
	// Ready reports whether worktree creation is available.
	Ready() bool

	// EnsureRepoReady verifies a repository exists at repoRoot.
	EnsureRepoReady(ctx context.Context, repoRoot string) (RepoInfo, error)

	// EnsureWorktree returns the worktree for (repoRoot, branch), creating
	// it if needed. Two calls with the same arguments yield the same path.
	EnsureWorktree(ctx context.Context, opts EnsureOptions) (Worktree, error)

	// List returns the repository's worktrees.
	List(ctx context.Context, repoRoot string) ([]Worktree, error)

	// Remove removes the worktree for branch.
	Remove(ctx context.Context, repoRoot, branch string) error
}

// GitBroker implements Broker on go-git plus an optional Helper. Without a
// helper it degrades deterministically: repos still verify, List is empty,
// Remove is a no-op, and EnsureWorktree fails so the manager can reject
// workspace-backed sessions up front.
type GitBroker struct {
	helper Helper
}

// NewBroker creates a broker. helper may be nil.
func NewBroker(helper Helper) *GitBroker {
	return &GitBroker{helper: helper}
}

var _ Broker = (*GitBroker)(nil)

// Ready reports whether a helper is wired in.
func (b *GitBroker) Ready() bool {
	return b.helper != nil
}

// EnsureRepoReady verifies a repository with at least one commit exists at
// repoRoot and reports its checked-out branch.
func (*GitBroker) EnsureRepoReady(_ context.Context, repoRoot string) (RepoInfo, error) {
	repo, err := git.PlainOpen(repoRoot)
	if err != nil {
		return RepoInfo{}, errors.NewResourceError(
			fmt.Sprintf("%q is not a git repository", repoRoot), err)
	}

	ref, err := repo.Head()
	if err != nil {
		return RepoInfo{}, errors.NewResourceError(
			fmt.Sprintf("repository %q has no usable HEAD", repoRoot), err)
	}

	info := RepoInfo{DefaultBranch: "main"}
	if ref.Name().IsBranch() {
		info.DefaultBranch = ref.Name().Short()
	}
	return info, nil
}

// EnsureWorktree returns the worktree for (repoRoot, branch), creating it
// through the helper when missing.
func (b *GitBroker) EnsureWorktree(ctx context.Context, opts EnsureOptions) (Worktree, error) {
	if opts.Branch == "" {
		return Worktree{}, errors.NewValidationError("worktree branch must not be empty", nil)
	}
	if b.helper == nil {
		return Worktree{}, errors.NewResourceError("no git worktree helper is configured", nil)
	}

	if _, err := b.EnsureRepoReady(ctx, opts.RepoRoot); err != nil {
		return Worktree{}, err
	}

	existing, err := b.helper.ListWorktrees(ctx, opts.RepoRoot)
	if err != nil {
		return Worktree{}, errors.NewResourceError("listing worktrees failed", err)
	}
	for _, wt := range existing {
		if wt.Branch == opts.Branch {
			return wt, nil
		}
	}

	path := worktreePath(opts)
	if err := b.helper.AddWorktree(ctx, opts.RepoRoot, opts.Branch, path); err != nil {
		return Worktree{}, errors.NewResourceError(
			fmt.Sprintf("creating worktree for branch %q failed", opts.Branch), err)
	}
	return Worktree{Branch: opts.Branch, Path: path}, nil
}

// List returns the repository's worktrees; empty without a helper.
func (b *GitBroker) List(ctx context.Context, repoRoot string) ([]Worktree, error) {
	if b.helper == nil {
		return nil, nil
	}
	worktrees, err := b.helper.ListWorktrees(ctx, repoRoot)
	if err != nil {
		return nil, errors.NewResourceError("listing worktrees failed", err)
	}
	return worktrees, nil
}

// Remove removes the worktree for branch; a no-op without a helper.
func (b *GitBroker) Remove(ctx context.Context, repoRoot, branch string) error {
	if b.helper == nil {
		return nil
	}
	if err := b.helper.RemoveWorktree(ctx, repoRoot, branch); err != nil {
		return errors.NewResourceError(
			fmt.Sprintf("removing worktree for branch %q failed", branch), err)
	}
	return nil
}

// worktreePath resolves the directory for a worktree deterministically so
// repeated EnsureWorktree calls agree.
func worktreePath(opts EnsureOptions) string {
	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = filepath.Join(opts.RepoRoot, ".aperture-worktrees")
	}
	template := opts.PathTemplate
	if template == "" {
		template = "{branch}"
	}
	name := strings.NewReplacer(
		"{repo}", filepath.Base(opts.RepoRoot),
		"{branch}", sanitizeBranch(opts.Branch),
	).Replace(template)
	return filepath.Join(baseDir, name)
}

// sanitizeBranch flattens a branch name into a single path element.
func sanitizeBranch(branch string) string {
	return strings.ReplaceAll(branch, "/", "-")
}
