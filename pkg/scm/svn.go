// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package scm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/archmagece/wmgr/internal/execx"
	"github.com/archmagece/wmgr/internal/parser"
	"github.com/archmagece/wmgr/pkg/manifest"
)

// Svn is the Subversion subprocess backend.
type Svn struct {
	exec *execx.Executor
}

// Kind identifies the backend.
func (s *Svn) Kind() manifest.ScmKind { return manifest.ScmSvn }

// Clone runs "svn checkout".
func (s *Svn) Clone(ctx context.Context, url, dest string, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	args := []string{"checkout"}
	args = append(args, s.authArgs(opts)...)
	if rev := revisionOf(opts); rev != "" {
		args = append(args, "--revision", rev)
	}
	args = append(args, url, dest)

	return s.runChecked(ctx, "", args...)
}

// Sync runs "svn update", reverting local edits first when Force is set.
func (s *Svn) Sync(ctx context.Context, dest string, opts Options) error {
	if opts.Force {
		if err := s.runChecked(ctx, dest, "revert", "--recursive", "."); err != nil {
			return err
		}
	}

	args := []string{"update"}
	args = append(args, s.authArgs(opts)...)
	if rev := revisionOf(opts); rev != "" {
		args = append(args, "--revision", rev)
	}

	return s.runChecked(ctx, dest, args...)
}

// Status reads the working-copy revision, synthesises a branch label from
// the checkout URL layout, and classifies "svn status" lines. Ahead/behind
// are never reported; svn is not a DVCS.
func (s *Svn) Status(ctx context.Context, dest string) (*StatusResult, error) {
	revision, err := s.exec.RunOutput(ctx, dest, "svn", "info", "--show-item", "revision")
	if err != nil {
		return nil, &StatusError{Dest: dest, Reason: "svn info failed", Err: err}
	}

	url, err := s.exec.RunOutput(ctx, dest, "svn", "info", "--show-item", "url")
	if err != nil {
		return nil, &StatusError{Dest: dest, Reason: "svn info failed", Err: err}
	}

	statusOut, err := s.exec.RunOutput(ctx, dest, "svn", "status")
	if err != nil {
		return nil, &StatusError{Dest: dest, Reason: "svn status failed", Err: err}
	}
	svnStatus := parser.ParseSvnStatus(statusOut)

	return &StatusResult{
		Revision:     revision,
		Branch:       parser.ParseSvnBranch(url),
		HasChanges:   svnStatus.HasChanges,
		HasUntracked: svnStatus.HasUntracked,
		Modified:     svnStatus.Changed,
		Untracked:    svnStatus.Untracked,
	}, nil
}

// IsRepository reports whether dest contains a .svn directory.
func (s *Svn) IsRepository(dest string) bool {
	return pathExists(filepath.Join(dest, ".svn"))
}

// CurrentRevision returns the working-copy revision.
func (s *Svn) CurrentRevision(ctx context.Context, dest string) (string, error) {
	return s.exec.RunOutput(ctx, dest, "svn", "info", "--show-item", "revision")
}

// HasChanges reports whether any non-untracked status line exists.
func (s *Svn) HasChanges(ctx context.Context, dest string) (bool, error) {
	out, err := s.exec.RunOutput(ctx, dest, "svn", "status")
	if err != nil {
		return false, err
	}
	return parser.ParseSvnStatus(out).HasChanges, nil
}

// authArgs injects credentials and non-interactive mode as available.
func (s *Svn) authArgs(opts Options) []string {
	var args []string
	if opts.Username != "" {
		args = append(args, "--username", opts.Username)
	}
	if opts.Password != "" {
		args = append(args, "--password", opts.Password)
	}
	args = append(args, "--non-interactive")
	return args
}

func revisionOf(opts Options) string {
	if opts.Revision != "" {
		return opts.Revision
	}
	return ""
}

func (s *Svn) runChecked(ctx context.Context, dir string, args ...string) error {
	result, err := s.exec.Run(ctx, dir, "svn", args...)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return &execx.CommandError{
			Command:  "svn " + args[0],
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}
	return nil
}
