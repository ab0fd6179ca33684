// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package scm provides a uniform clone/sync/status capability over the
// Git, Subversion, and Perforce command-line tools. The backends form a
// closed set of concrete values behind a small interface; every git, svn
// and p4 invocation goes through this package. The foreach runner and the
// audit aggregator run their shell commands through internal/execx directly.
package scm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/archmagece/wmgr/internal/execx"
	"github.com/archmagece/wmgr/pkg/manifest"
)

// Options carries per-operation settings. Each backend honours the subset
// relevant to it and ignores the rest.
type Options struct {
	Branch            string
	Revision          string
	Shallow           bool
	Depth             int
	Remote            string
	RecurseSubmodules bool
	Username          string
	Password          string
	Client            string
	Stream            string
	Force             bool
	Extra             []string
}

// StatusResult is the raw backend status snapshot consumed by the status
// aggregator.
type StatusResult struct {
	Revision     string
	Branch       string
	HasChanges   bool
	HasUntracked bool
	Staged       int
	Modified     int
	Untracked    int

	// Ahead/Behind are meaningful only when HasUpstream is true; SVN and
	// P4 never set it.
	HasUpstream bool
	Ahead       int
	Behind      int
}

// Backend is the uniform capability set over the three SCM tools.
type Backend interface {
	// Kind identifies the backend.
	Kind() manifest.ScmKind

	// Clone materialises a repository at dest.
	Clone(ctx context.Context, url, dest string, opts Options) error

	// Sync brings an existing repository up to date.
	Sync(ctx context.Context, dest string, opts Options) error

	// Status reports the repository state.
	Status(ctx context.Context, dest string) (*StatusResult, error)

	// IsRepository reports whether dest is a repository of this kind.
	IsRepository(dest string) bool

	// CurrentRevision returns the checked-out revision identifier.
	CurrentRevision(ctx context.Context, dest string) (string, error)

	// HasChanges reports whether the working copy has local modifications.
	HasChanges(ctx context.Context, dest string) (bool, error)
}

// New returns the backend for the given SCM kind.
func New(kind manifest.ScmKind) (Backend, error) {
	executor := execx.NewExecutor()
	switch kind.OrDefault() {
	case manifest.ScmGit:
		return &Git{exec: executor}, nil
	case manifest.ScmSvn:
		return &Svn{exec: executor}, nil
	case manifest.ScmP4:
		return &P4{exec: executor}, nil
	default:
		return nil, fmt.Errorf("unknown scm kind: %s", kind)
	}
}

// Detect probes a directory for a repository, checking .git, .svn, and
// .p4/config in that order.
func Detect(dir string) (manifest.ScmKind, bool) {
	if pathExists(filepath.Join(dir, ".git")) {
		return manifest.ScmGit, true
	}
	if pathExists(filepath.Join(dir, ".svn")) {
		return manifest.ScmSvn, true
	}
	if pathExists(filepath.Join(dir, ".p4", "config")) {
		return manifest.ScmP4, true
	}
	return "", false
}

// Available reports whether the backend's executable works on this host.
func Available(ctx context.Context, kind manifest.ScmKind) bool {
	executor := execx.NewExecutor()
	var ok bool
	switch kind.OrDefault() {
	case manifest.ScmGit:
		ok, _ = executor.RunQuiet(ctx, "", "git", "--version")
	case manifest.ScmSvn:
		ok, _ = executor.RunQuiet(ctx, "", "svn", "--version")
	case manifest.ScmP4:
		ok, _ = executor.RunQuiet(ctx, "", "p4", "info")
	}
	return ok
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// nonInteractiveEnv disables git credential prompts so bulk operations
// fail fast instead of blocking on a password read.
var nonInteractiveEnv = []string{
	"GIT_TERMINAL_PROMPT=0",
}

// authErrorPatterns are stderr fragments that indicate authentication
// failures across backends.
var authErrorPatterns = []string{
	"could not read Username",
	"could not read Password",
	"Authentication failed",
	"terminal prompts disabled",
	"Invalid username or password",
	"remote: HTTP Basic: Access denied",
	"E170001", // svn authorization failed
	"Perforce password (P4PASSWD) invalid",
}

// networkErrorPatterns are stderr fragments that indicate transport
// failures rather than repository problems.
var networkErrorPatterns = []string{
	"Could not resolve host",
	"Connection refused",
	"Connection timed out",
	"unable to access",
	"Network is unreachable",
	"TCP connect to",
}

// IsAuthError classifies an error's stderr as an authentication failure.
func IsAuthError(err error) bool {
	return matchesStderr(err, authErrorPatterns)
}

// IsNetworkError classifies an error's stderr as a network failure.
func IsNetworkError(err error) bool {
	return matchesStderr(err, networkErrorPatterns)
}

func matchesStderr(err error, patterns []string) bool {
	var cmdErr *execx.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	for _, pattern := range patterns {
		if strings.Contains(cmdErr.Stderr, pattern) {
			return true
		}
	}
	return false
}

// StatusError reports a failed status query: a backend command that failed,
// missing backend state, or output the status parser could not make sense of.
type StatusError struct {
	Dest   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status failed for %s: %s: %v", e.Dest, e.Reason, e.Err)
	}
	return fmt.Sprintf("status failed for %s: %s", e.Dest, e.Reason)
}

// Unwrap implements error unwrapping.
func (e *StatusError) Unwrap() error { return e.Err }
