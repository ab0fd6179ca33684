// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/archmagece/wmgr/pkg/manifest"
	"github.com/archmagece/wmgr/pkg/scm"
	"github.com/archmagece/wmgr/pkg/workspace"
)

// SyncAction classifies the outcome of one repo reconciliation.
type SyncAction string

const (
	// ActionCloned means the repo was missing and has been cloned.
	ActionCloned SyncAction = "cloned"

	// ActionUpdated means the repo existed and was fast-forwarded.
	ActionUpdated SyncAction = "updated"

	// ActionSkipped means the repo was left untouched (for example a
	// directory that is not a valid repository for the declared SCM).
	ActionSkipped SyncAction = "skipped"

	// ActionFailed means the clone or update failed.
	ActionFailed SyncAction = "failed"
)

// SyncOptions control a reconciliation run.
type SyncOptions struct {
	// Groups restricts the run to the named groups; empty means all repos.
	Groups []string

	// Force discards local changes before updating.
	Force bool

	// NoCorrectBranch leaves repos on their current branch even when the
	// manifest declares a different one.
	NoCorrectBranch bool

	// ParallelJobs bounds the worker pool; zero means the core count.
	ParallelJobs int

	// Verbose enables per-repo progress logging.
	Verbose bool

	// Recursive descends one level into nested workspaces found inside
	// cloned repos.
	Recursive bool

	// Progress receives per-repo lifecycle events; nil for none.
	Progress ProgressSink

	// Manifest overrides the loader options for the manifest re-read.
	Manifest manifest.Options

	// FileOps controls the post-sync file-operations processor.
	FileOps FileOpOptions
}

// SyncResult is the outcome for a single repository.
type SyncResult struct {
	Dest     string        `json:"dest"`
	Action   SyncAction    `json:"action"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// SyncReport aggregates a reconciliation run. Reports are values; they are
// never mutated after Sync returns.
type SyncReport struct {
	ClonedCount  int            `json:"cloned_count"`
	UpdatedCount int            `json:"updated_count"`
	SkippedCount int            `json:"skipped_count"`
	FailedCount  int            `json:"failed_count"`
	Results      []SyncResult   `json:"results"`
	FileOps      []FileOpResult `json:"file_ops,omitempty"`
	Duration     time.Duration  `json:"duration"`
}

// OK reports whether every repo reconciled without failure.
func (r *SyncReport) OK() bool {
	return r.FailedCount == 0
}

// ProgressSink receives per-repo sync lifecycle events. Implementations
// must be safe for concurrent use.
type ProgressSink interface {
	RepoStarted(dest string)
	RepoFinished(result SyncResult)
}

// NoopProgress discards all events.
type NoopProgress struct{}

// RepoStarted implements ProgressSink.
func (NoopProgress) RepoStarted(string) {}

// RepoFinished implements ProgressSink.
func (NoopProgress) RepoFinished(SyncResult) {}

// ErrLocalChanges is the guard refusing to move a dirty working tree.
var ErrLocalChanges = errors.New("Local changes detected. Use --force to override.")

// Sync reconciles the workspace against its manifest: missing repos are
// cloned, existing ones fetched and fast-forwarded. Workers never abort
// the run; every error lands in the report.
func (e *Engine) Sync(ctx context.Context, ws *workspace.Workspace, opts SyncOptions) (*SyncReport, error) {
	start := time.Now()

	if !ws.Initialized() {
		return nil, workspace.ErrNotInitialized
	}

	// Re-read from disk on every run: no network involved, and replays
	// observe manifest edits.
	processed, err := ws.LoadManifest(opts.Manifest)
	if err != nil {
		return nil, fmt.Errorf("manifest update failed: %w", err)
	}

	repos, err := selectRepos(processed.Manifest, opts.Groups)
	if err != nil {
		return nil, err
	}

	progress := opts.Progress
	if progress == nil {
		progress = NoopProgress{}
	}

	results := make(chan SyncResult, len(repos))

	g := &errgroup.Group{}
	g.SetLimit(boundedParallel(opts.ParallelJobs))

	defaultBranch := processed.Manifest.DefaultBranch

	for _, repo := range repos {
		repo := repo
		g.Go(func() error {
			progress.RepoStarted(repo.Dest)
			result := e.syncRepo(ctx, ws, repo, defaultBranch, opts)
			progress.RepoFinished(result)
			results <- result
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	report := &SyncReport{}
	synced := make(map[string]bool, len(repos))
	for result := range results {
		report.Results = append(report.Results, result)
		switch result.Action {
		case ActionCloned:
			report.ClonedCount++
			synced[result.Dest] = true
		case ActionUpdated:
			report.UpdatedCount++
			synced[result.Dest] = true
		case ActionSkipped:
			report.SkippedCount++
		case ActionFailed:
			report.FailedCount++
		}
	}

	if opts.Recursive {
		e.syncNested(ctx, ws, report, opts)
	}

	// File placements run only for repos that reconciled successfully.
	var successful []manifest.Repo
	for _, repo := range repos {
		if synced[repo.Dest] && (len(repo.Copy) > 0 || len(repo.Symlink) > 0) {
			successful = append(successful, repo)
		}
	}
	if len(successful) > 0 {
		report.FileOps = e.ProcessFileOps(ws, successful, opts.FileOps)
	}

	if err := ws.MarkInitialized(); err != nil {
		e.log.WithError(err).Warn("failed to persist workspace state")
	}

	report.Duration = time.Since(start)
	return report, nil
}

// syncRepo reconciles a single repository.
func (e *Engine) syncRepo(ctx context.Context, ws *workspace.Workspace, repo manifest.Repo, defaultBranch string, opts SyncOptions) SyncResult {
	start := time.Now()
	result := SyncResult{Dest: repo.Dest}

	fail := func(err error) SyncResult {
		result.Action = ActionFailed
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	backend, err := e.backends(repo.Scm)
	if err != nil {
		return fail(err)
	}

	repoPath := ws.RepoPath(repo.Dest)
	scmOpts := e.scmOptions(ws, repo, opts)

	if _, statErr := os.Stat(repoPath); os.IsNotExist(statErr) {
		cloneOpts := scmOpts
		if cloneOpts.Branch == "" {
			cloneOpts.Branch = defaultBranch
		}
		if err := backend.Clone(ctx, repo.URL, repoPath, cloneOpts); err != nil {
			return fail(fmt.Errorf("clone failed: %w", err))
		}
		result.Action = ActionCloned
		result.Duration = time.Since(start)
		return result
	}

	if !backend.IsRepository(repoPath) {
		result.Action = ActionSkipped
		result.Error = fmt.Sprintf("%s exists but is not a %s repository", repo.Dest, repo.Scm.OrDefault())
		result.Duration = time.Since(start)
		return result
	}

	if git, ok := backend.(*scm.Git); ok && repo.Branch != "" {
		if err := e.correctBranch(ctx, git, repoPath, repo.Branch, opts); err != nil {
			return fail(err)
		}
		if opts.NoCorrectBranch {
			// Stay on the current branch; plain fetch + fast-forward.
			scmOpts.Branch = ""
		}
	}

	if err := backend.Sync(ctx, repoPath, scmOpts); err != nil {
		return fail(fmt.Errorf("sync failed: %w", err))
	}

	result.Action = ActionUpdated
	result.Duration = time.Since(start)
	return result
}

// correctBranch refuses to move a dirty working tree onto the declared
// branch unless forced.
func (e *Engine) correctBranch(ctx context.Context, git *scm.Git, repoPath, declared string, opts SyncOptions) error {
	if opts.NoCorrectBranch {
		return nil
	}

	current, err := git.CurrentBranch(ctx, repoPath)
	if err != nil {
		return fmt.Errorf("branch lookup failed: %w", err)
	}
	if current == declared {
		return nil
	}

	if !opts.Force {
		dirty, err := git.HasChanges(ctx, repoPath)
		if err != nil {
			return fmt.Errorf("status failed: %w", err)
		}
		if dirty {
			return ErrLocalChanges
		}
	}

	return nil
}

// scmOptions derives the per-repo backend options from the manifest entry
// and the workspace config. The manifest default branch applies to clones
// only; updates without a declared branch fast-forward in place.
func (e *Engine) scmOptions(ws *workspace.Workspace, repo manifest.Repo, opts SyncOptions) scm.Options {
	scmOpts := scm.Options{
		Branch:   repo.Branch,
		Revision: repo.CheckoutRef(),
		Force:    opts.Force,
	}
	if ws.Config != nil {
		scmOpts.Shallow = ws.Config.ShallowClones
	}
	return scmOpts
}

// syncNested walks cloned repos for nested workspaces and syncs each one
// exactly one level deep. A nested root equal to the parent root is
// skipped so self-referential manifests cannot recurse forever.
func (e *Engine) syncNested(ctx context.Context, ws *workspace.Workspace, report *SyncReport, opts SyncOptions) {
	parentRoot, _ := filepath.Abs(ws.Root)

	for _, result := range append([]SyncResult{}, report.Results...) {
		if result.Action != ActionCloned {
			continue
		}

		nested, err := workspace.Open(ws.RepoPath(result.Dest))
		if err != nil {
			continue
		}
		nestedRoot, _ := filepath.Abs(nested.Root)
		if nestedRoot == parentRoot {
			continue
		}

		if !nested.Initialized() {
			if err := nested.MarkInitialized(); err != nil {
				continue
			}
		}

		nestedOpts := opts
		nestedOpts.Recursive = false

		nestedReport, err := e.Sync(ctx, nested, nestedOpts)
		if err != nil {
			report.FailedCount++
			report.Results = append(report.Results, SyncResult{
				Dest:   result.Dest,
				Action: ActionFailed,
				Error:  fmt.Sprintf("nested workspace sync failed: %v", err),
			})
			continue
		}

		report.ClonedCount += nestedReport.ClonedCount
		report.UpdatedCount += nestedReport.UpdatedCount
		report.SkippedCount += nestedReport.SkippedCount
		report.FailedCount += nestedReport.FailedCount
		for _, nestedResult := range nestedReport.Results {
			nestedResult.Dest = result.Dest + "/" + nestedResult.Dest
			report.Results = append(report.Results, nestedResult)
		}
		report.FileOps = append(report.FileOps, nestedReport.FileOps...)
	}
}
