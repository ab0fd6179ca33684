// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package scm

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/archmagece/wmgr/internal/testutil"
	"github.com/archmagece/wmgr/pkg/manifest"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func gitBackend(t *testing.T) *Git {
	t.Helper()
	backend, err := New(manifest.ScmGit)
	if err != nil {
		t.Fatal(err)
	}
	return backend.(*Git)
}

func TestGitCloneAndStatus(t *testing.T) {
	requireGit(t)

	origin := testutil.TempGitRepoWithCommit(t)
	dest := filepath.Join(t.TempDir(), "clone")

	git := gitBackend(t)
	ctx := context.Background()

	if err := git.Clone(ctx, origin, dest, Options{}); err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if !git.IsRepository(dest) {
		t.Fatal("clone destination is not a repository")
	}

	status, err := git.Status(ctx, dest)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Revision == "" {
		t.Error("empty revision")
	}
	if status.HasChanges || status.HasUntracked {
		t.Errorf("fresh clone should be clean: %+v", status)
	}

	// Dirty the working tree and observe it.
	if err := os.WriteFile(filepath.Join(dest, "untracked.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	status, err = git.Status(ctx, dest)
	if err != nil {
		t.Fatalf("Status after write: %v", err)
	}
	if !status.HasUntracked {
		t.Error("untracked file not detected")
	}

	dirty, err := git.HasChanges(ctx, dest)
	if err != nil {
		t.Fatalf("HasChanges: %v", err)
	}
	if !dirty {
		t.Error("HasChanges = false with untracked file")
	}
}

func TestGitSyncFastForward(t *testing.T) {
	requireGit(t)

	origin := testutil.TempGitRepoWithCommit(t)
	dest := filepath.Join(t.TempDir(), "clone")

	git := gitBackend(t)
	ctx := context.Background()

	if err := git.Clone(ctx, origin, dest, Options{}); err != nil {
		t.Fatalf("Clone: %v", err)
	}

	// Advance the origin.
	if err := os.WriteFile(filepath.Join(origin, "second.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = origin
		if err := cmd.Run(); err != nil {
			t.Fatalf("git %v: %v", args, err)
		}
	}
	run("add", ".")
	run("commit", "-m", "second")

	before, err := git.CurrentRevision(ctx, dest)
	if err != nil {
		t.Fatal(err)
	}

	if err := git.Sync(ctx, dest, Options{}); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	after, err := git.CurrentRevision(ctx, dest)
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Error("sync did not fast-forward")
	}
}

func TestGitIsRepository(t *testing.T) {
	git := gitBackend(t)
	if git.IsRepository(t.TempDir()) {
		t.Error("plain directory reported as repository")
	}
}
