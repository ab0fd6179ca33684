// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const simpleManifest = `
repos:
  - dest: repo1
    url: https://github.com/example/repo1
    branch: main
  - dest: repo2
    url: https://github.com/example/repo2
default_branch: main
`

func TestLoadBytesSimple(t *testing.T) {
	processed, err := LoadBytes([]byte(simpleManifest), "", DefaultOptions())
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}

	m := processed.Manifest
	if len(m.Repos) != 2 {
		t.Fatalf("repos = %d, want 2", len(m.Repos))
	}
	if m.Repos[0].Dest != "repo1" {
		t.Errorf("repos[0].dest = %q, want repo1", m.Repos[0].Dest)
	}
	if m.DefaultBranch != "main" {
		t.Errorf("default_branch = %q, want main", m.DefaultBranch)
	}
	if m.Repos[0].Branch != "main" {
		t.Errorf("repos[0].branch = %q, want main", m.Repos[0].Branch)
	}
}

func TestLoadBytesDuplicateDest(t *testing.T) {
	input := `
repos:
  - dest: repo1
    url: https://github.com/example/a
  - dest: repo1
    url: https://github.com/example/b
`
	_, err := LoadBytes([]byte(input), "", DefaultOptions())
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if verr.Msg != "Duplicate destination path: repo1" {
		t.Errorf("message = %q", verr.Msg)
	}
}

func TestLoadBytesInvalidYAML(t *testing.T) {
	_, err := LoadBytes([]byte("repos: [unclosed"), "", DefaultOptions())
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
}

func TestLoadBytesRejectsBadURL(t *testing.T) {
	input := `
repos:
  - dest: bad
    url: "javascript:alert('xss')"
`
	_, err := LoadBytes([]byte(input), "", DefaultOptions())
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "injection") {
		t.Errorf("error %q does not mention injection", err.Error())
	}
}

func TestLoadBytesInjectsOrigin(t *testing.T) {
	processed, err := LoadBytes([]byte(simpleManifest), "", DefaultOptions())
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}

	url, ok := processed.Manifest.Repos[0].Remotes.Get("origin")
	if !ok {
		t.Fatal("origin remote not injected")
	}
	if url != "https://github.com/example/repo1" {
		t.Errorf("origin = %q", url)
	}
}

func TestLoadBytesReconcilesInlineGroups(t *testing.T) {
	input := `
repos:
  - dest: repo1
    url: https://github.com/example/repo1
    groups: [backend]
  - dest: repo2
    url: https://github.com/example/repo2
groups:
  backend:
    repos: [repo2]
`
	processed, err := LoadBytes([]byte(input), "", DefaultOptions())
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}

	group := processed.Manifest.Groups["backend"]
	if len(group.Repos) != 2 {
		t.Fatalf("backend members = %v, want both repos", group.Repos)
	}
}

func TestLoadFileWithIncludes(t *testing.T) {
	dir := t.TempDir()

	child := `
repos:
  - dest: repo2
    url: https://github.com/example/repo2
  - dest: repo1
    url: https://github.com/example/overridden
default_branch: develop
`
	if err := os.WriteFile(filepath.Join(dir, "child.yml"), []byte(child), 0o644); err != nil {
		t.Fatal(err)
	}

	parent := `
repos:
  - dest: repo1
    url: https://github.com/example/repo1
includes:
  - url: child.yml
`
	parentPath := filepath.Join(dir, "parent.yml")
	if err := os.WriteFile(parentPath, []byte(parent), 0o644); err != nil {
		t.Fatal(err)
	}

	processed, err := LoadFile(parentPath, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	m := processed.Manifest
	if len(m.Repos) != 2 {
		t.Fatalf("repos = %d, want 2 (base wins on repo1)", len(m.Repos))
	}
	if m.Repos[0].URL != "https://github.com/example/repo1" {
		t.Errorf("base repo1 overridden by include: %q", m.Repos[0].URL)
	}
	if m.DefaultBranch != "develop" {
		t.Errorf("default_branch = %q, want develop (adopted from include)", m.DefaultBranch)
	}

	if len(processed.Includes) != 1 {
		t.Fatalf("include records = %d, want 1", len(processed.Includes))
	}
	record := processed.Includes[0]
	if record.Revision != "HEAD" {
		t.Errorf("revision = %q, want HEAD", record.Revision)
	}
	if record.RepoCount != 2 {
		t.Errorf("repo count = %d, want 2", record.RepoCount)
	}
}

func TestLoadFileCircularInclude(t *testing.T) {
	dir := t.TempDir()

	a := filepath.Join(dir, "a.yml")
	b := filepath.Join(dir, "b.yml")

	if err := os.WriteFile(a, []byte("repos: []\nincludes:\n  - url: b.yml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("repos: []\nincludes:\n  - url: a.yml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(a, DefaultOptions())
	var cerr *CircularDependencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("error type = %T, want *CircularDependencyError", err)
	}
	if len(cerr.Chain) < 3 {
		t.Errorf("chain = %v, want full a -> b -> a chain", cerr.Chain)
	}
	if !strings.Contains(cerr.Error(), "a.yml") || !strings.Contains(cerr.Error(), "b.yml") {
		t.Errorf("chain %q should list both URLs", cerr.Error())
	}
}

func TestLoadFileDepthLimit(t *testing.T) {
	dir := t.TempDir()

	a := filepath.Join(dir, "a.yml")
	b := filepath.Join(dir, "b.yml")
	if err := os.WriteFile(a, []byte("repos: []\nincludes:\n  - url: b.yml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("repos: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions()
	opts.MaxDepth = 0

	_, err := LoadFile(a, opts)
	var derr *DepthLimitError
	if !errors.As(err, &derr) {
		t.Fatalf("error type = %T, want *DepthLimitError", err)
	}
}

func TestLoadRemoteFetchDisabled(t *testing.T) {
	input := `
repos: []
includes:
  - url: https://example.com/manifest.yml
`
	opts := DefaultOptions()
	opts.AllowRemoteFetch = false

	_, err := LoadBytes([]byte(input), "", opts)
	var ferr *RemoteFetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("error type = %T, want *RemoteFetchError", err)
	}
	if ferr.Reason != "disabled" {
		t.Errorf("reason = %q, want disabled", ferr.Reason)
	}
}

func TestLoadFutureBlockWarnings(t *testing.T) {
	input := `
repos: []
future:
  min_version: "999.0.0"
  deprecated:
    - feature: old-thing
      message: use new-thing
      removal_version: "2.0"
`
	processed, err := LoadBytes([]byte(input), "", DefaultOptions())
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}

	if len(processed.Warnings) != 2 {
		t.Fatalf("warnings = %v, want deprecation + min_version", processed.Warnings)
	}
	want := "DEPRECATED: old-thing (will be removed in 2.0): use new-thing"
	if processed.Warnings[0] != want {
		t.Errorf("warning = %q, want %q", processed.Warnings[0], want)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	// Loading a manifest's own serialisation yields an equal manifest.
	processed, err := LoadBytes([]byte(simpleManifest), "", DefaultOptions())
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}

	data, err := processed.Manifest.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}

	reloaded, err := LoadBytes(data, "", DefaultOptions())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if len(reloaded.Manifest.Repos) != len(processed.Manifest.Repos) {
		t.Fatalf("repo count changed on round trip")
	}
	for i, repo := range processed.Manifest.Repos {
		got := reloaded.Manifest.Repos[i]
		if got.Dest != repo.Dest || got.URL != repo.URL || got.Branch != repo.Branch {
			t.Errorf("repo %d changed: %+v vs %+v", i, repo, got)
		}
	}
	if reloaded.Manifest.DefaultBranch != processed.Manifest.DefaultBranch {
		t.Error("default branch changed on round trip")
	}
	// An already-expanded manifest has no includes left to process.
	if len(reloaded.Includes) != 0 {
		t.Errorf("includes = %v, want none", reloaded.Includes)
	}
}
