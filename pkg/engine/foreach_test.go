//go:build !windows

package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/archmagece/wmgr/internal/testutil"
)

const foreachManifest = `
repos:
  - dest: a
    url: https://github.com/example/a
  - dest: b
    url: https://github.com/example/b
`

func foreachWorkspace(t *testing.T) (string, *Engine) {
	t.Helper()
	dir := testutil.TempWorkspace(t, foreachManifest)
	for _, dest := range []string{"a", "b"} {
		if err := os.MkdirAll(filepath.Join(dir, dest), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dir, New()
}

func TestForeachInjectsRepoEnv(t *testing.T) {
	dir, eng := foreachWorkspace(t)
	ws := openWorkspace(t, dir)

	report, err := eng.Foreach(context.Background(), ws, ForeachConfig{
		Command:   "echo $TSRC_REPO_DEST",
		ChangeDir: true,
	})
	if err != nil {
		t.Fatalf("Foreach: %v", err)
	}

	if report.SuccessCount != 2 {
		t.Fatalf("success = %d, want 2", report.SuccessCount)
	}
	for _, result := range report.Results {
		if strings.TrimSpace(result.Stdout) != result.Dest {
			t.Errorf("stdout for %s = %q", result.Dest, result.Stdout)
		}
	}
}

func TestForeachInjectsWorkspaceEnv(t *testing.T) {
	dir, eng := foreachWorkspace(t)
	ws := openWorkspace(t, dir)

	report, err := eng.Foreach(context.Background(), ws, ForeachConfig{
		Command:   "echo $TSRC_WORKSPACE_ROOT",
		ChangeDir: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, result := range report.Results {
		if strings.TrimSpace(result.Stdout) != ws.Root {
			t.Errorf("workspace root = %q, want %q", result.Stdout, ws.Root)
		}
	}
}

func TestForeachChangesDirectory(t *testing.T) {
	dir, eng := foreachWorkspace(t)
	ws := openWorkspace(t, dir)

	report, err := eng.Foreach(context.Background(), ws, ForeachConfig{
		Command:   "pwd",
		ChangeDir: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, result := range report.Results {
		if filepath.Base(strings.TrimSpace(result.Stdout)) != result.Dest {
			t.Errorf("pwd for %s = %q", result.Dest, result.Stdout)
		}
	}
}

func TestForeachSkipsMissingRepo(t *testing.T) {
	dir := testutil.TempWorkspace(t, foreachManifest)
	if err := os.MkdirAll(filepath.Join(dir, "a"), 0o755); err != nil {
		t.Fatal(err)
	}
	ws := openWorkspace(t, dir)

	report, err := New().Foreach(context.Background(), ws, ForeachConfig{
		Command:   "true",
		ChangeDir: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if report.SuccessCount != 1 || report.SkippedCount != 1 {
		t.Errorf("success/skipped = %d/%d, want 1/1", report.SuccessCount, report.SkippedCount)
	}
	for _, result := range report.Results {
		if result.Dest == "b" && result.Reason != "Repository directory does not exist" {
			t.Errorf("skip reason = %q", result.Reason)
		}
	}
}

func TestForeachStopsOnFailureSequential(t *testing.T) {
	dir, eng := foreachWorkspace(t)
	ws := openWorkspace(t, dir)

	report, err := eng.Foreach(context.Background(), ws, ForeachConfig{
		Command:   "false",
		ChangeDir: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if report.FailureCount != 1 {
		t.Errorf("failed = %d, want 1 (dispatch stops at first failure)", report.FailureCount)
	}
	if report.SkippedCount != 1 {
		t.Errorf("skipped = %d, want 1", report.SkippedCount)
	}
	if report.OK() {
		t.Error("report.OK() with failures")
	}
}

func TestForeachContinueOnError(t *testing.T) {
	dir, eng := foreachWorkspace(t)
	ws := openWorkspace(t, dir)

	report, err := eng.Foreach(context.Background(), ws, ForeachConfig{
		Command:         "false",
		ContinueOnError: true,
		ChangeDir:       true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.FailureCount != 2 {
		t.Errorf("failed = %d, want 2", report.FailureCount)
	}
}

func TestForeachParallel(t *testing.T) {
	dir, eng := foreachWorkspace(t)
	ws := openWorkspace(t, dir)

	report, err := eng.Foreach(context.Background(), ws, ForeachConfig{
		Command:         "echo $TSRC_REPO_DEST",
		Parallel:        true,
		MaxParallel:     2,
		ContinueOnError: true,
		ChangeDir:       true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !report.WasParallel {
		t.Error("WasParallel = false")
	}
	if report.SuccessCount != 2 {
		t.Fatalf("success = %d, want 2", report.SuccessCount)
	}

	seen := map[string]bool{}
	for _, result := range report.Results {
		seen[strings.TrimSpace(result.Stdout)] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("outputs = %v, want both repos", seen)
	}
}

func TestForeachTimeout(t *testing.T) {
	dir, eng := foreachWorkspace(t)
	ws := openWorkspace(t, dir)

	report, err := eng.Foreach(context.Background(), ws, ForeachConfig{
		Command:         "sleep 10",
		TimeoutSeconds:  1,
		ContinueOnError: true,
		ChangeDir:       true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.TimeoutCount != 2 {
		t.Errorf("timeouts = %d, want 2", report.TimeoutCount)
	}
}

func TestForeachEmptyCommand(t *testing.T) {
	dir, eng := foreachWorkspace(t)
	ws := openWorkspace(t, dir)

	if _, err := eng.Foreach(context.Background(), ws, ForeachConfig{}); err == nil {
		t.Error("empty command should fail")
	}
}

func TestForeachSequentialOrder(t *testing.T) {
	dir, eng := foreachWorkspace(t)
	ws := openWorkspace(t, dir)

	report, err := eng.Foreach(context.Background(), ws, ForeachConfig{
		Command:   "true",
		ChangeDir: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Results[0].Dest != "a" || report.Results[1].Dest != "b" {
		t.Errorf("sequential order = %v, want manifest order", report.Results)
	}
}
