// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"os"
	"strconv"

	"github.com/archmagece/wmgr/pkg/manifest"
	"github.com/archmagece/wmgr/pkg/scm"
	"github.com/archmagece/wmgr/pkg/workspace"
)

// LogOptions control a history fan-out.
type LogOptions struct {
	// Groups restricts the run; empty means all repos.
	Groups []string

	// Oneline condenses each commit to a single line.
	Oneline bool

	// MaxCount bounds the commits shown per repo; zero means no bound.
	MaxCount int

	// Since/Until bound the commit date range (git-parseable dates).
	Since string
	Until string

	// Manifest overrides the loader options.
	Manifest manifest.Options
}

// RepoLog is the history output for one repository.
type RepoLog struct {
	Dest    string `json:"dest"`
	Output  string `json:"output,omitempty"`
	Skipped string `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Log collects git history for every selected repo in manifest order.
// Non-git repos and missing directories are skipped, not failed.
func (e *Engine) Log(ctx context.Context, ws *workspace.Workspace, opts LogOptions) ([]RepoLog, error) {
	processed, err := ws.LoadManifest(opts.Manifest)
	if err != nil {
		return nil, err
	}

	repos, err := selectRepos(processed.Manifest, opts.Groups)
	if err != nil {
		return nil, err
	}

	logs := make([]RepoLog, 0, len(repos))
	for _, repo := range repos {
		logs = append(logs, e.repoLog(ctx, ws, repo, opts))
	}
	return logs, nil
}

func (e *Engine) repoLog(ctx context.Context, ws *workspace.Workspace, repo manifest.Repo, opts LogOptions) RepoLog {
	entry := RepoLog{Dest: repo.Dest}

	if repo.Scm.OrDefault() != manifest.ScmGit {
		entry.Skipped = "log supports git repositories only"
		return entry
	}

	repoPath := ws.RepoPath(repo.Dest)
	if _, err := os.Stat(repoPath); os.IsNotExist(err) {
		entry.Skipped = "Repository directory does not exist"
		return entry
	}

	backend, err := e.backends(repo.Scm)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	git, ok := backend.(*scm.Git)
	if !ok {
		entry.Skipped = "log supports git repositories only"
		return entry
	}

	var args []string
	if opts.Oneline {
		args = append(args, "--oneline")
	}
	if opts.MaxCount > 0 {
		args = append(args, "--max-count", strconv.Itoa(opts.MaxCount))
	}
	if opts.Since != "" {
		args = append(args, "--since", opts.Since)
	}
	if opts.Until != "" {
		args = append(args, "--until", opts.Until)
	}

	output, err := git.Log(ctx, repoPath, args...)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}

	entry.Output = output
	return entry
}
