// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/archmagece/wmgr/internal/execx"
	"github.com/archmagece/wmgr/pkg/manifest"
	"github.com/archmagece/wmgr/pkg/workspace"
)

// ForeachState classifies one command invocation.
type ForeachState string

const (
	// ForeachSuccess means the command exited zero.
	ForeachSuccess ForeachState = "success"

	// ForeachFailed means the command exited non-zero.
	ForeachFailed ForeachState = "failed"

	// ForeachTimeout means the command was killed by the timeout.
	ForeachTimeout ForeachState = "timeout"

	// ForeachSkipped means the repo was not eligible (missing directory,
	// or dispatch stopped after an earlier failure).
	ForeachSkipped ForeachState = "skipped"
)

// ForeachConfig controls a fan-out command run.
type ForeachConfig struct {
	// Command is the shell command line; must be non-empty.
	Command string

	// Groups restricts the run; empty means all repos.
	Groups []string

	// Parallel dispatches through the bounded pool instead of running in
	// manifest order.
	Parallel bool

	// MaxParallel bounds the pool; zero means min(repos, cores).
	MaxParallel int

	// ContinueOnError keeps dispatching after a failure.
	ContinueOnError bool

	// Verbose echoes each command before running it.
	Verbose bool

	// Env adds caller variables on top of the inherited environment.
	Env map[string]string

	// TimeoutSeconds bounds each invocation; zero means no timeout.
	TimeoutSeconds uint

	// ChangeDir runs the command inside each repo directory instead of
	// the workspace root.
	ChangeDir bool

	// Manifest overrides the loader options.
	Manifest manifest.Options
}

// ForeachResult is the outcome of one invocation.
type ForeachResult struct {
	Dest       string        `json:"dest"`
	State      ForeachState  `json:"state"`
	ExitCode   int           `json:"exit_code"`
	Stdout     string        `json:"stdout,omitempty"`
	Stderr     string        `json:"stderr,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// ForeachReport aggregates a fan-out run.
type ForeachReport struct {
	Results      []ForeachResult `json:"results"`
	SuccessCount int             `json:"success_count"`
	FailureCount int             `json:"failure_count"`
	TimeoutCount int             `json:"timeout_count"`
	SkippedCount int             `json:"skipped_count"`
	WasParallel  bool            `json:"was_parallel"`

	// TotalExecutionTime is wall time in parallel mode and the sum of
	// per-repo durations in sequential mode.
	TotalExecutionTime time.Duration `json:"total_execution_time"`
}

// OK reports whether every invocation succeeded or was skipped.
func (r *ForeachReport) OK() bool {
	return r.FailureCount == 0 && r.TimeoutCount == 0
}

// Foreach executes the configured command in every selected repo with the
// workspace environment injected.
func (e *Engine) Foreach(ctx context.Context, ws *workspace.Workspace, cfg ForeachConfig) (*ForeachReport, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("foreach: empty command")
	}
	if !ws.Initialized() {
		return nil, workspace.ErrNotInitialized
	}

	processed, err := ws.LoadManifest(cfg.Manifest)
	if err != nil {
		return nil, fmt.Errorf("manifest update failed: %w", err)
	}

	repos, err := selectRepos(processed.Manifest, cfg.Groups)
	if err != nil {
		return nil, err
	}

	workspaceEnv := e.workspaceEnv(ws)
	executor := execx.NewExecutor()

	report := &ForeachReport{WasParallel: cfg.Parallel}
	start := time.Now()

	if cfg.Parallel {
		report.Results = e.foreachParallel(ctx, ws, executor, repos, cfg, workspaceEnv)
	} else {
		report.Results = e.foreachSequential(ctx, ws, executor, repos, cfg, workspaceEnv)
	}

	for _, result := range report.Results {
		switch result.State {
		case ForeachSuccess:
			report.SuccessCount++
		case ForeachFailed:
			report.FailureCount++
		case ForeachTimeout:
			report.TimeoutCount++
		case ForeachSkipped:
			report.SkippedCount++
		}
	}

	if cfg.Parallel {
		report.TotalExecutionTime = time.Since(start)
	} else {
		for _, result := range report.Results {
			report.TotalExecutionTime += result.Duration
		}
	}

	return report, nil
}

func (e *Engine) foreachSequential(ctx context.Context, ws *workspace.Workspace, executor *execx.Executor, repos []manifest.Repo, cfg ForeachConfig, workspaceEnv []string) []ForeachResult {
	results := make([]ForeachResult, 0, len(repos))
	stopped := false

	for _, repo := range repos {
		if stopped {
			results = append(results, ForeachResult{
				Dest:   repo.Dest,
				State:  ForeachSkipped,
				Reason: "skipped after earlier failure",
			})
			continue
		}

		result := e.foreachRepo(ctx, ws, executor, repo, cfg, workspaceEnv)
		results = append(results, result)

		if !cfg.ContinueOnError && (result.State == ForeachFailed || result.State == ForeachTimeout) {
			stopped = true
		}
	}

	return results
}

func (e *Engine) foreachParallel(ctx context.Context, ws *workspace.Workspace, executor *execx.Executor, repos []manifest.Repo, cfg ForeachConfig, workspaceEnv []string) []ForeachResult {
	limit := cfg.MaxParallel
	if limit <= 0 || limit > len(repos) {
		limit = len(repos)
	}
	limit = boundedParallel(limit)

	results := make(chan ForeachResult, len(repos))

	// Running tasks always complete; the flag only stops new dispatches.
	var stopped atomic.Bool

	g := &errgroup.Group{}
	g.SetLimit(limit)

	for _, repo := range repos {
		repo := repo
		g.Go(func() error {
			if stopped.Load() {
				results <- ForeachResult{
					Dest:   repo.Dest,
					State:  ForeachSkipped,
					Reason: "skipped after earlier failure",
				}
				return nil
			}

			result := e.foreachRepo(ctx, ws, executor, repo, cfg, workspaceEnv)
			if !cfg.ContinueOnError && (result.State == ForeachFailed || result.State == ForeachTimeout) {
				stopped.Store(true)
			}
			results <- result
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	collected := make([]ForeachResult, 0, len(repos))
	for result := range results {
		collected = append(collected, result)
	}
	return collected
}

func (e *Engine) foreachRepo(ctx context.Context, ws *workspace.Workspace, executor *execx.Executor, repo manifest.Repo, cfg ForeachConfig, workspaceEnv []string) ForeachResult {
	result := ForeachResult{Dest: repo.Dest, StartedAt: time.Now()}

	repoPath := ws.RepoPath(repo.Dest)
	if _, err := os.Stat(repoPath); os.IsNotExist(err) {
		result.State = ForeachSkipped
		result.Reason = "Repository directory does not exist"
		result.FinishedAt = time.Now()
		return result
	}

	dir := ws.Root
	if cfg.ChangeDir {
		dir = repoPath
	}

	// Later entries win: caller variables, then the injected workspace and
	// per-repo variables.
	env := make([]string, 0, len(cfg.Env)+len(workspaceEnv)+4)
	for key, value := range cfg.Env {
		env = append(env, key+"="+value)
	}
	env = append(env, workspaceEnv...)
	env = append(env,
		"TSRC_REPO_DEST="+repo.Dest,
		"TSRC_REPO_URL="+repo.URL,
		"TSRC_REPO_PATH="+repoPath,
	)
	if repo.Branch != "" {
		env = append(env, "TSRC_REPO_BRANCH="+repo.Branch)
	}

	if cfg.Verbose {
		e.log.WithField("repo", repo.Dest).Debugf("running: %s", cfg.Command)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	execResult, err := executor.RunShell(ctx, dir, env, cfg.Command, timeout)
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	switch {
	case execResult != nil && execResult.TimedOut:
		result.State = ForeachTimeout
		result.Reason = fmt.Sprintf("timed out after %ds", cfg.TimeoutSeconds)
	case err != nil:
		result.State = ForeachFailed
		result.ExitCode = -1
		result.Reason = err.Error()
	case execResult.ExitCode == 0:
		result.State = ForeachSuccess
	default:
		result.State = ForeachFailed
	}

	if execResult != nil {
		result.ExitCode = execResult.ExitCode
		result.Stdout = execResult.Stdout
		result.Stderr = execResult.Stderr
	}

	return result
}

// workspaceEnv builds the injected workspace-level variables.
func (e *Engine) workspaceEnv(ws *workspace.Workspace) []string {
	env := []string{"TSRC_WORKSPACE_ROOT=" + ws.Root}
	if ws.Config != nil {
		if ws.Config.ManifestURL != "" {
			env = append(env, "TSRC_MANIFEST_URL="+ws.Config.ManifestURL)
		}
		if ws.Config.ManifestBranch != "" {
			env = append(env, "TSRC_MANIFEST_BRANCH="+ws.Config.ManifestBranch)
		}
	}
	return env
}
