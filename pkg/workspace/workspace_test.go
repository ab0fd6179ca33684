// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindWalksUpward(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "wmgr.yml"), "repos: []\n")

	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	ws, err := Find(nested)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if ws.Root != root {
		t.Errorf("root = %q, want %q", ws.Root, root)
	}
}

func TestFindNotFound(t *testing.T) {
	dir := t.TempDir()
	if _, err := Find(dir); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindPrecedence(t *testing.T) {
	// wmgr.yml wins over manifest.yaml; root wins over .wmgr/.
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "manifest.yaml"), "repos: []\n")
	writeFile(t, filepath.Join(root, "wmgr.yml"), "repos: []\n")
	writeFile(t, filepath.Join(root, ".wmgr", "wmgr.yml"), "repos: []\n")

	ws, err := Find(root)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if filepath.Base(ws.ManifestPath) != "wmgr.yml" {
		t.Errorf("manifest = %q, want wmgr.yml", ws.ManifestPath)
	}
	if filepath.Dir(ws.ManifestPath) != root {
		t.Errorf("manifest %q should live at the root, not .wmgr/", ws.ManifestPath)
	}
}

func TestFindStateDirFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".wmgr", "manifest.yml"), "repos: []\n")

	ws, err := Find(root)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if filepath.Dir(ws.ManifestPath) != filepath.Join(root, StateDirName) {
		t.Errorf("manifest = %q, want inside .wmgr/", ws.ManifestPath)
	}
}

func TestMarkInitializedRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "wmgr.yml"), "repos: []\n")

	ws, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if ws.Initialized() {
		t.Fatal("fresh workspace should not be initialized")
	}

	if err := ws.MarkInitialized(); err != nil {
		t.Fatalf("MarkInitialized: %v", err)
	}

	reopened, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.Initialized() {
		t.Error("initialized flag did not persist")
	}

	// Idempotent.
	if err := reopened.MarkInitialized(); err != nil {
		t.Fatalf("second MarkInitialized: %v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), StateDirName, ConfigFileName)

	saved := &Config{
		ManifestURL:    "https://github.com/example/manifest",
		ManifestBranch: "main",
		ShallowClones:  true,
		RepoGroups:     []string{"backend"},
		Initialized:    true,
	}
	if err := SaveConfig(path, saved); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.ManifestURL != saved.ManifestURL || loaded.ManifestBranch != saved.ManifestBranch {
		t.Errorf("loaded = %+v", loaded)
	}
	if !loaded.ShallowClones || !loaded.Initialized {
		t.Errorf("flags lost: %+v", loaded)
	}
}

func TestRepoPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "wmgr.yml"), "repos: []\n")

	ws, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(root, "group", "repo")
	if got := ws.RepoPath("group/repo"); got != want {
		t.Errorf("RepoPath = %q, want %q", got, want)
	}
}
