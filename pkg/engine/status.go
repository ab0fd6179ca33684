// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/archmagece/wmgr/pkg/manifest"
	"github.com/archmagece/wmgr/pkg/workspace"
)

// RepoState is the aggregated state of one repository.
type RepoState string

const (
	// StateClean means the working tree matches the declared state.
	StateClean RepoState = "clean"

	// StateDirty means local modifications or untracked files exist.
	StateDirty RepoState = "dirty"

	// StateMissing means the destination directory does not exist.
	StateMissing RepoState = "missing"

	// StateWrongBranch means the checked-out branch differs from the
	// declared one.
	StateWrongBranch RepoState = "wrong-branch"

	// StateOutOfSync means the branch is ahead of or behind its upstream.
	StateOutOfSync RepoState = "out-of-sync"

	// StateError means the backend could not compute a status.
	StateError RepoState = "error"
)

// RepoStatus is the computed snapshot for one repository.
type RepoStatus struct {
	Dest      string    `json:"dest" yaml:"dest"`
	State     RepoState `json:"state" yaml:"state"`
	Branch    string    `json:"branch,omitempty" yaml:"branch,omitempty"`
	Revision  string    `json:"revision,omitempty" yaml:"revision,omitempty"`
	Staged    int       `json:"staged,omitempty" yaml:"staged,omitempty"`
	Modified  int       `json:"modified,omitempty" yaml:"modified,omitempty"`
	Untracked int       `json:"untracked,omitempty" yaml:"untracked,omitempty"`
	Ahead     int       `json:"ahead,omitempty" yaml:"ahead,omitempty"`
	Behind    int       `json:"behind,omitempty" yaml:"behind,omitempty"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// StatusOptions control a status run.
type StatusOptions struct {
	// Groups restricts the run; empty means all repos.
	Groups []string

	// ParallelJobs bounds the worker pool. Status defaults to serial.
	ParallelJobs int

	// Manifest overrides the loader options.
	Manifest manifest.Options
}

// StatusReport aggregates per-repo statuses with counters.
type StatusReport struct {
	Statuses     []RepoStatus `json:"statuses" yaml:"statuses"`
	CleanCount   int          `json:"clean_count" yaml:"clean_count"`
	DirtyCount   int          `json:"dirty_count" yaml:"dirty_count"`
	MissingCount int          `json:"missing_count" yaml:"missing_count"`
	ErrorCount   int          `json:"error_count" yaml:"error_count"`
	Total        int          `json:"total" yaml:"total"`
}

// AllClean reports whether every repo is clean.
func (r *StatusReport) AllClean() bool {
	return r.CleanCount == r.Total
}

// Status collects the state of every selected repo. Serial by default so
// the output order matches the manifest; ParallelJobs > 1 opts into the
// bounded pool.
func (e *Engine) Status(ctx context.Context, ws *workspace.Workspace, opts StatusOptions) (*StatusReport, error) {
	processed, err := ws.LoadManifest(opts.Manifest)
	if err != nil {
		return nil, err
	}

	repos, err := selectRepos(processed.Manifest, opts.Groups)
	if err != nil {
		return nil, err
	}

	statuses := make([]RepoStatus, len(repos))

	if opts.ParallelJobs > 1 {
		g := &errgroup.Group{}
		g.SetLimit(boundedParallel(opts.ParallelJobs))
		for i, repo := range repos {
			i, repo := i, repo
			g.Go(func() error {
				statuses[i] = e.repoStatus(ctx, ws, repo)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, repo := range repos {
			statuses[i] = e.repoStatus(ctx, ws, repo)
		}
	}

	report := &StatusReport{Statuses: statuses, Total: len(statuses)}
	for _, status := range statuses {
		switch status.State {
		case StateClean:
			report.CleanCount++
		case StateDirty:
			report.DirtyCount++
		case StateMissing:
			report.MissingCount++
		case StateError:
			report.ErrorCount++
		}
	}

	return report, nil
}

// repoStatus maps a backend StatusResult onto the aggregated state.
// Rules are evaluated top-down; the first match wins.
func (e *Engine) repoStatus(ctx context.Context, ws *workspace.Workspace, repo manifest.Repo) RepoStatus {
	status := RepoStatus{Dest: repo.Dest}

	repoPath := ws.RepoPath(repo.Dest)
	if _, err := os.Stat(repoPath); os.IsNotExist(err) {
		status.State = StateMissing
		return status
	}

	backend, err := e.backends(repo.Scm)
	if err != nil {
		status.State = StateError
		status.Error = err.Error()
		return status
	}

	result, err := backend.Status(ctx, repoPath)
	if err != nil {
		status.State = StateError
		status.Error = err.Error()
		return status
	}

	status.Branch = result.Branch
	status.Revision = result.Revision
	status.Staged = result.Staged
	status.Modified = result.Modified
	status.Untracked = result.Untracked
	status.Ahead = result.Ahead
	status.Behind = result.Behind

	switch {
	case repo.Branch != "" && result.Branch != "" && result.Branch != repo.Branch:
		status.State = StateWrongBranch
	case result.HasChanges || result.HasUntracked:
		status.State = StateDirty
	case result.Ahead+result.Behind > 0:
		status.State = StateOutOfSync
	default:
		status.State = StateClean
	}

	return status
}
