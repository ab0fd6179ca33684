// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package scm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/archmagece/wmgr/internal/execx"
	"github.com/archmagece/wmgr/internal/parser"
	"github.com/archmagece/wmgr/pkg/manifest"
)

// Git is the git subprocess backend.
type Git struct {
	exec *execx.Executor
}

// Kind identifies the backend.
func (g *Git) Kind() manifest.ScmKind { return manifest.ScmGit }

// Clone runs "git clone" with the relevant options, then checks out the
// pinned revision when one is set.
func (g *Git) Clone(ctx context.Context, url, dest string, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	args := []string{"clone"}
	if opts.Shallow {
		depth := opts.Depth
		if depth <= 0 {
			depth = 1
		}
		args = append(args, "--depth", strconv.Itoa(depth))
	}
	if opts.RecurseSubmodules {
		args = append(args, "--recurse-submodules")
	}
	if opts.Branch != "" {
		args = append(args, "--branch", opts.Branch)
	}
	args = append(args, url, dest)
	args = append(args, opts.Extra...)

	if err := g.runChecked(ctx, "", args...); err != nil {
		return err
	}

	if opts.Revision != "" {
		return g.runChecked(ctx, dest, "checkout", opts.Revision)
	}
	return nil
}

// Sync fetches origin and fast-forwards the working tree. With Force it
// discards local state first; it never merges.
func (g *Git) Sync(ctx context.Context, dest string, opts Options) error {
	if err := g.runChecked(ctx, dest, "fetch", "origin"); err != nil {
		return err
	}

	if opts.Force {
		if err := g.runChecked(ctx, dest, "reset", "--hard"); err != nil {
			return err
		}
		if err := g.runChecked(ctx, dest, "clean", "-fd"); err != nil {
			return err
		}
	}

	switch {
	case opts.Revision != "":
		return g.runChecked(ctx, dest, "checkout", opts.Revision)
	case opts.Branch != "":
		if err := g.runChecked(ctx, dest, "checkout", opts.Branch); err != nil {
			return err
		}
		return g.runChecked(ctx, dest, "pull", "--ff-only")
	default:
		return g.runChecked(ctx, dest, "pull", "--ff-only")
	}
}

// Status collects revision, branch, porcelain state, and ahead/behind
// counts against origin/<branch>.
func (g *Git) Status(ctx context.Context, dest string) (*StatusResult, error) {
	revision, err := g.exec.RunOutput(ctx, dest, "git", "rev-parse", "HEAD")
	if err != nil {
		return nil, &StatusError{Dest: dest, Reason: "rev-parse failed", Err: err}
	}

	branch, err := g.exec.RunOutput(ctx, dest, "git", "branch", "--show-current")
	if err != nil {
		return nil, &StatusError{Dest: dest, Reason: "branch lookup failed", Err: err}
	}
	branch = parser.ParseBranchInfo(branch)

	porcelain, err := g.exec.RunOutput(ctx, dest, "git", "status", "--porcelain")
	if err != nil {
		return nil, &StatusError{Dest: dest, Reason: "status failed", Err: err}
	}
	gitStatus, err := parser.ParseGitStatus(porcelain)
	if err != nil {
		return nil, &StatusError{Dest: dest, Reason: "unparseable status output", Err: err}
	}

	result := &StatusResult{
		Revision:     revision,
		Branch:       branch,
		HasChanges:   len(gitStatus.StagedFiles)+len(gitStatus.ModifiedFiles)+len(gitStatus.ConflictFiles) > 0,
		HasUntracked: len(gitStatus.UntrackedFiles) > 0,
		Staged:       len(gitStatus.StagedFiles),
		Modified:     len(gitStatus.ModifiedFiles),
		Untracked:    len(gitStatus.UntrackedFiles),
	}

	if branch != "" {
		upstream := "origin/" + branch
		if ok, _ := g.exec.RunQuiet(ctx, dest, "git", "rev-parse", "--verify", upstream); ok {
			result.HasUpstream = true
			if out, err := g.exec.RunOutput(ctx, dest, "git", "rev-list", "--count", upstream+"..HEAD"); err == nil {
				result.Ahead = parser.ParseInt(out)
			}
			if out, err := g.exec.RunOutput(ctx, dest, "git", "rev-list", "--count", "HEAD.."+upstream); err == nil {
				result.Behind = parser.ParseInt(out)
			}
		}
	}

	return result, nil
}

// IsRepository reports whether dest contains a .git entry.
func (g *Git) IsRepository(dest string) bool {
	return pathExists(filepath.Join(dest, ".git"))
}

// CurrentRevision returns the HEAD commit hash.
func (g *Git) CurrentRevision(ctx context.Context, dest string) (string, error) {
	return g.exec.RunOutput(ctx, dest, "git", "rev-parse", "HEAD")
}

// HasChanges reports whether the porcelain status is non-empty.
func (g *Git) HasChanges(ctx context.Context, dest string) (bool, error) {
	out, err := g.exec.RunOutput(ctx, dest, "git", "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// CurrentBranch returns the checked-out branch, empty in detached HEAD.
func (g *Git) CurrentBranch(ctx context.Context, dest string) (string, error) {
	out, err := g.exec.RunOutput(ctx, dest, "git", "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return parser.ParseBranchInfo(out), nil
}

// Checkout switches the working tree to the given branch.
func (g *Git) Checkout(ctx context.Context, dest, branch string) error {
	return g.runChecked(ctx, dest, "checkout", branch)
}

// Log returns raw "git log" output with the given extra arguments.
func (g *Git) Log(ctx context.Context, dest string, args ...string) (string, error) {
	full := append([]string{"log"}, args...)
	result, err := g.exec.RunEnv(ctx, dest, nonInteractiveEnv, "git", full...)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", &execx.CommandError{Command: "git log", ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return result.Stdout, nil
}

func (g *Git) runChecked(ctx context.Context, dir string, args ...string) error {
	result, err := g.exec.RunEnv(ctx, dir, nonInteractiveEnv, "git", args...)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return &execx.CommandError{
			Command:  "git " + args[0],
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}
	return nil
}
