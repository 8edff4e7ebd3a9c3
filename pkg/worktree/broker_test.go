// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package worktree

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aperturehq/aperture/pkg/errors"
)

// initRepo creates a repository with a single commit so HEAD resolves.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err, "initializing repository should succeed")
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Commit("initial commit", &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  "tester",
			Email: "tester@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err, "creating initial commit should succeed")
	return dir
}

// fakeHelper records calls and serves a configurable worktree list.
type fakeHelper struct {
	worktrees []Worktree
	added     []Worktree
	removed   []string
	addErr    error
}

func (f *fakeHelper) AddWorktree(_ context.Context, _, branch, path string) error {
	if f.addErr != nil {
		return f.addErr
	}
	wt := Worktree{Branch: branch, Path: path}
	f.added = append(f.added, wt)
	f.worktrees = append(f.worktrees, wt)
	return nil
}

func (f *fakeHelper) ListWorktrees(_ context.Context, _ string) ([]Worktree, error) {
	return f.worktrees, nil
}

func (f *fakeHelper) RemoveWorktree(_ context.Context, _, branch string) error {
	f.removed = append(f.removed, branch)
	return nil
}

func TestBranchForSession(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "aperture/1b9d6bcd", BranchForSession("1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed"))
	assert.Equal(t, "aperture/abc", BranchForSession("abc"), "short ids are used whole")
}

func TestEnsureRepoReady(t *testing.T) {
	t.Parallel()
	broker := NewBroker(nil)

	repoRoot := initRepo(t)
	info, err := broker.EnsureRepoReady(t.Context(), repoRoot)
	require.NoError(t, err)
	assert.Equal(t, "master", info.DefaultBranch)

	_, err = broker.EnsureRepoReady(t.Context(), t.TempDir())
	assert.True(t, errors.IsResource(err), "a bare directory is not a repository")
}

func TestEnsureWorktree_CreatesAndIsIdempotent(t *testing.T) {
	t.Parallel()
	helper := &fakeHelper{}
	broker := NewBroker(helper)
	repoRoot := initRepo(t)

	opts := EnsureOptions{RepoRoot: repoRoot, Branch: "aperture/1b9d6bcd"}
	first, err := broker.EnsureWorktree(t.Context(), opts)
	require.NoError(t, err)
	assert.Equal(t, "aperture/1b9d6bcd", first.Branch)
	assert.Equal(t,
		filepath.Join(repoRoot, ".aperture-worktrees", "aperture-1b9d6bcd"),
		first.Path)

	second, err := broker.EnsureWorktree(t.Context(), opts)
	require.NoError(t, err)
	assert.Equal(t, first.Path, second.Path, "same branch yields the same path")
	assert.Len(t, helper.added, 1, "the worktree is created once")
}

func TestEnsureWorktree_WithoutHelper(t *testing.T) {
	t.Parallel()
	broker := NewBroker(nil)
	assert.False(t, broker.Ready())

	_, err := broker.EnsureWorktree(t.Context(), EnsureOptions{
		RepoRoot: initRepo(t),
		Branch:   "aperture/deadbeef",
	})
	assert.True(t, errors.IsResource(err), "ensure fails deterministically without a helper")

	worktrees, err := broker.List(t.Context(), "/anywhere")
	require.NoError(t, err)
	assert.Empty(t, worktrees)

	assert.NoError(t, broker.Remove(t.Context(), "/anywhere", "aperture/deadbeef"))
}

func TestEnsureWorktree_PathTemplate(t *testing.T) {
	t.Parallel()
	helper := &fakeHelper{}
	broker := NewBroker(helper)
	repoRoot := initRepo(t)

	wt, err := broker.EnsureWorktree(t.Context(), EnsureOptions{
		RepoRoot:     repoRoot,
		Branch:       "aperture/cafe0123",
		BaseDir:      "/srv/worktrees",
		PathTemplate: "{repo}-{branch}",
	})
	require.NoError(t, err)
	assert.Equal(t,
		filepath.Join("/srv/worktrees", filepath.Base(repoRoot)+"-aperture-cafe0123"),
		wt.Path)
}

func TestRemove_DelegatesToHelper(t *testing.T) {
	t.Parallel()
	helper := &fakeHelper{worktrees: []Worktree{{Branch: "aperture/feed1234", Path: "/w/x"}}}
	broker := NewBroker(helper)

	require.NoError(t, broker.Remove(t.Context(), "/repo", "aperture/feed1234"))
	assert.Equal(t, []string{"aperture/feed1234"}, helper.removed)
}
