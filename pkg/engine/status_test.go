// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/archmagece/wmgr/internal/testutil"
	"github.com/archmagece/wmgr/pkg/scm"
)

const statusManifest = `
repos:
  - dest: repo1
    url: https://github.com/example/repo1
    branch: main
`

func statusFixture(t *testing.T, result *scm.StatusResult, materialize bool) (*StatusReport, error) {
	t.Helper()
	dir := testutil.TempWorkspace(t, statusManifest)
	if materialize {
		if err := os.MkdirAll(filepath.Join(dir, "repo1", ".git"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	ws := openWorkspace(t, dir)

	mock := &mockBackend{statuses: map[string]*scm.StatusResult{"repo1": result}}
	return mockEngine(mock).Status(context.Background(), ws, StatusOptions{})
}

func TestStatusMappingRules(t *testing.T) {
	tests := []struct {
		name   string
		result *scm.StatusResult
		want   RepoState
	}{
		{
			name:   "clean",
			result: &scm.StatusResult{Revision: "abc", Branch: "main"},
			want:   StateClean,
		},
		{
			name:   "wrong branch wins over dirty",
			result: &scm.StatusResult{Branch: "develop", HasChanges: true},
			want:   StateWrongBranch,
		},
		{
			name:   "dirty",
			result: &scm.StatusResult{Branch: "main", HasChanges: true, Modified: 2},
			want:   StateDirty,
		},
		{
			name:   "untracked counts as dirty",
			result: &scm.StatusResult{Branch: "main", HasUntracked: true, Untracked: 1},
			want:   StateDirty,
		},
		{
			name:   "out of sync",
			result: &scm.StatusResult{Branch: "main", HasUpstream: true, Ahead: 1, Behind: 2},
			want:   StateOutOfSync,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := statusFixture(t, tt.result, true)
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if report.Statuses[0].State != tt.want {
				t.Errorf("state = %q, want %q", report.Statuses[0].State, tt.want)
			}
		})
	}
}

func TestStatusMissingRepo(t *testing.T) {
	report, err := statusFixture(t, nil, false)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.Statuses[0].State != StateMissing {
		t.Errorf("state = %q, want missing", report.Statuses[0].State)
	}
	if report.MissingCount != 1 {
		t.Errorf("missing count = %d", report.MissingCount)
	}
	if report.AllClean() {
		t.Error("AllClean with a missing repo")
	}
}

func TestStatusCounters(t *testing.T) {
	report, err := statusFixture(t, &scm.StatusResult{Branch: "main"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 1 || report.CleanCount != 1 {
		t.Errorf("counters = %+v", report)
	}
	if !report.AllClean() {
		t.Error("AllClean = false for clean workspace")
	}
}
