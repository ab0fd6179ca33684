// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/archmagece/wmgr/internal/execx"
	"github.com/archmagece/wmgr/pkg/manifest"
	"github.com/archmagece/wmgr/pkg/workspace"
)

// DefaultAuditorCommand is the external auditor invoked per repo. The
// auditor owns the actual analysis; the engine only aggregates its JSON.
const DefaultAuditorCommand = "osv-scanner --format json ."

// AuditOptions control a dependency-audit run.
type AuditOptions struct {
	// Groups restricts the run; empty means all repos.
	Groups []string

	// Parallel dispatches through the bounded pool.
	Parallel bool

	// MaxParallel bounds the pool; zero means min(repos, cores).
	MaxParallel int

	// AuditorCommand overrides the external auditor command line.
	AuditorCommand string

	// TimeoutSeconds bounds each auditor invocation; zero means none.
	TimeoutSeconds uint

	// Manifest overrides the loader options.
	Manifest manifest.Options
}

// Finding is one vulnerability reported by the auditor.
type Finding struct {
	ID       string `json:"id"`
	Package  string `json:"package"`
	Severity string `json:"severity"`
}

// IsCriticalOrHigh reports whether the finding gates the exit code.
func (f Finding) IsCriticalOrHigh() bool {
	severity := strings.ToLower(f.Severity)
	return severity == "critical" || severity == "high"
}

// RepoAuditResult is the audit outcome for one repository.
type RepoAuditResult struct {
	Dest     string        `json:"dest"`
	Audited  bool          `json:"audited"`
	Findings []Finding     `json:"findings,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// AuditReport aggregates an audit run.
type AuditReport struct {
	Results         []RepoAuditResult `json:"results"`
	AuditedCount    int               `json:"audited_count"`
	SkippedCount    int               `json:"skipped_count"`
	FailedCount     int               `json:"failed_count"`
	VulnerableCount int               `json:"vulnerable_count"`
}

// HasCriticalOrHigh reports whether any finding is critical or high.
func (r *AuditReport) HasCriticalOrHigh() bool {
	for _, result := range r.Results {
		for _, finding := range result.Findings {
			if finding.IsCriticalOrHigh() {
				return true
			}
		}
	}
	return false
}

// Audit shells out to the external auditor in every selected repo and
// aggregates the JSON findings.
func (e *Engine) Audit(ctx context.Context, ws *workspace.Workspace, opts AuditOptions) (*AuditReport, error) {
	if !ws.Initialized() {
		return nil, workspace.ErrNotInitialized
	}

	processed, err := ws.LoadManifest(opts.Manifest)
	if err != nil {
		return nil, fmt.Errorf("manifest update failed: %w", err)
	}

	repos, err := selectRepos(processed.Manifest, opts.Groups)
	if err != nil {
		return nil, err
	}

	command := opts.AuditorCommand
	if command == "" {
		command = DefaultAuditorCommand
	}

	executor := execx.NewExecutor()
	results := make([]RepoAuditResult, len(repos))

	runOne := func(i int, repo manifest.Repo) {
		results[i] = e.auditRepo(ctx, ws, executor, repo, command, opts)
	}

	if opts.Parallel {
		limit := opts.MaxParallel
		if limit <= 0 || limit > len(repos) {
			limit = len(repos)
		}
		g := &errgroup.Group{}
		g.SetLimit(boundedParallel(limit))
		for i, repo := range repos {
			i, repo := i, repo
			g.Go(func() error {
				runOne(i, repo)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, repo := range repos {
			runOne(i, repo)
		}
	}

	report := &AuditReport{Results: results}
	for _, result := range results {
		switch {
		case result.Audited:
			report.AuditedCount++
			if len(result.Findings) > 0 {
				report.VulnerableCount++
			}
		case result.Error != "":
			report.FailedCount++
		default:
			report.SkippedCount++
		}
	}

	return report, nil
}

func (e *Engine) auditRepo(ctx context.Context, ws *workspace.Workspace, executor *execx.Executor, repo manifest.Repo, command string, opts AuditOptions) RepoAuditResult {
	start := time.Now()
	result := RepoAuditResult{Dest: repo.Dest}

	repoPath := ws.RepoPath(repo.Dest)
	if _, err := os.Stat(repoPath); os.IsNotExist(err) {
		result.Duration = time.Since(start)
		return result
	}

	timeout := time.Duration(opts.TimeoutSeconds) * time.Second
	execResult, err := executor.RunShell(ctx, repoPath, nil, command, timeout)
	result.Duration = time.Since(start)

	if err != nil {
		result.Error = err.Error()
		return result
	}
	if execResult.TimedOut {
		result.Error = "auditor timed out"
		return result
	}

	// Auditors conventionally exit non-zero when findings exist, so the
	// exit code alone is not an error; a non-zero exit with no output is,
	// and so is unparseable output.
	if execResult.ExitCode != 0 && strings.TrimSpace(execResult.Stdout) == "" {
		result.Error = strings.TrimSpace(execResult.Stderr)
		if result.Error == "" {
			result.Error = fmt.Sprintf("auditor exited %d", execResult.ExitCode)
		}
		return result
	}
	findings, parseErr := parseAuditorOutput(execResult.Stdout)
	if parseErr != nil {
		result.Error = parseErr.Error()
		return result
	}

	result.Audited = true
	result.Findings = findings
	return result
}

// parseAuditorOutput accepts the flat contract {"vulnerabilities": [...]}
// as well as the nested {"vulnerabilities": {"list": [...]}} shape some
// auditors emit.
func parseAuditorOutput(output string) ([]Finding, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil, nil
	}

	var flat struct {
		Vulnerabilities []Finding `json:"vulnerabilities"`
	}
	if err := json.Unmarshal([]byte(trimmed), &flat); err == nil {
		return flat.Vulnerabilities, nil
	}

	var nested struct {
		Vulnerabilities struct {
			List []struct {
				Advisory Finding `json:"advisory"`
			} `json:"list"`
		} `json:"vulnerabilities"`
	}
	if err := json.Unmarshal([]byte(trimmed), &nested); err != nil {
		return nil, fmt.Errorf("unparseable auditor output: %w", err)
	}

	findings := make([]Finding, 0, len(nested.Vulnerabilities.List))
	for _, item := range nested.Vulnerabilities.List {
		findings = append(findings, item.Advisory)
	}
	return findings, nil
}
