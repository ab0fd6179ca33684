// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package parser

import "testing"

func TestParseGitStatus(t *testing.T) {
	tests := []struct {
		name          string
		output        string
		wantClean     bool
		wantStaged    int
		wantModified  int
		wantUntracked int
	}{
		{
			name:      "clean tree",
			output:    "",
			wantClean: true,
		},
		{
			name:          "mixed state",
			output:        "M  staged.go\n M worktree.go\n?? new.txt\n",
			wantStaged:    1,
			wantModified:  1,
			wantUntracked: 1,
		},
		{
			name:       "rename",
			output:     "R  old.txt -> new.txt\n",
			wantStaged: 1,
		},
		{
			name:       "added and deleted",
			output:     "A  a.go\nD  b.go\n",
			wantStaged: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := ParseGitStatus(tt.output)
			if err != nil {
				t.Fatalf("ParseGitStatus: %v", err)
			}
			if status.IsClean != tt.wantClean {
				t.Errorf("IsClean = %v, want %v", status.IsClean, tt.wantClean)
			}
			if len(status.StagedFiles) != tt.wantStaged {
				t.Errorf("staged = %d, want %d", len(status.StagedFiles), tt.wantStaged)
			}
			if len(status.ModifiedFiles) != tt.wantModified {
				t.Errorf("modified = %d, want %d", len(status.ModifiedFiles), tt.wantModified)
			}
			if len(status.UntrackedFiles) != tt.wantUntracked {
				t.Errorf("untracked = %d, want %d", len(status.UntrackedFiles), tt.wantUntracked)
			}
		})
	}
}

func TestParseGitStatusMalformed(t *testing.T) {
	if _, err := ParseGitStatus("X"); err == nil {
		t.Error("expected error for short line")
	}
}

func TestParseAheadBehind(t *testing.T) {
	ahead, behind, err := ParseAheadBehind("2\t3")
	if err != nil {
		t.Fatalf("ParseAheadBehind: %v", err)
	}
	if ahead != 2 || behind != 3 {
		t.Errorf("got %d/%d, want 2/3", ahead, behind)
	}

	if _, _, err := ParseAheadBehind("nonsense"); err == nil {
		t.Error("expected error for malformed input")
	}
}

func TestParseSvnStatus(t *testing.T) {
	status := ParseSvnStatus("M       changed.c\n?       unknown.c\nA       added.c\n")
	if !status.HasChanges {
		t.Error("HasChanges = false, want true")
	}
	if !status.HasUntracked {
		t.Error("HasUntracked = false, want true")
	}
	if status.Changed != 2 {
		t.Errorf("Changed = %d, want 2", status.Changed)
	}
	if status.Untracked != 1 {
		t.Errorf("Untracked = %d, want 1", status.Untracked)
	}

	clean := ParseSvnStatus("")
	if clean.HasChanges || clean.HasUntracked {
		t.Error("empty output should be clean")
	}
}

func TestParseSvnBranch(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://svn.example.com/proj/trunk", "trunk"},
		{"https://svn.example.com/proj/branches/feature-x", "feature-x"},
		{"https://svn.example.com/proj/branches/feature-x/sub", "feature-x"},
		{"https://svn.example.com/proj/tags/v1.0", "v1.0"},
		{"https://svn.example.com/proj/other", ""},
	}

	for _, tt := range tests {
		if got := ParseSvnBranch(tt.url); got != tt.want {
			t.Errorf("ParseSvnBranch(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
