// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package workspace locates and models a wmgr workspace: a directory tree
// rooted at a manifest file, with per-repo subdirectories and a .wmgr/
// state directory.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/archmagece/wmgr/pkg/manifest"
)

// StateDirName is the workspace state directory under the root.
const StateDirName = ".wmgr"

// manifestCandidates in precedence order. The workspace root takes
// priority over the .wmgr/ subdirectory.
var manifestCandidates = []string{
	"wmgr.yml",
	"wmgr.yaml",
	"manifest.yml",
	"manifest.yaml",
}

// ErrNotFound is returned when no manifest exists in the directory chain.
var ErrNotFound = errors.New("no workspace found (missing wmgr.yml or manifest.yml)")

// ErrNotInitialized is returned when a command requires an initialized
// workspace.
var ErrNotInitialized = errors.New("workspace not initialized")

// Workspace is a root directory containing a manifest file.
type Workspace struct {
	// Root is the absolute workspace root.
	Root string

	// ManifestPath is the absolute path of the located manifest file.
	ManifestPath string

	// Config is the persisted workspace config, nil before init.
	Config *Config
}

// Find walks from startDir upward until a directory contains a manifest
// file (directly or inside .wmgr/) and returns the workspace rooted there.
func Find(startDir string) (*Workspace, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("resolve start dir: %w", err)
	}

	for {
		if path, ok := manifestIn(dir); ok {
			return open(dir, path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNotFound
		}
		dir = parent
	}
}

// Open returns the workspace rooted exactly at dir, without walking upward.
func Open(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve dir: %w", err)
	}
	path, ok := manifestIn(abs)
	if !ok {
		return nil, ErrNotFound
	}
	return open(abs, path)
}

func open(root, manifestPath string) (*Workspace, error) {
	ws := &Workspace{Root: root, ManifestPath: manifestPath}

	cfg, err := LoadConfig(filepath.Join(root, StateDirName, ConfigFileName))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load workspace config: %w", err)
	}
	ws.Config = cfg

	return ws, nil
}

// manifestIn checks dir for a manifest candidate, root before .wmgr/.
func manifestIn(dir string) (string, bool) {
	for _, name := range manifestCandidates {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path, true
		}
	}
	for _, name := range manifestCandidates {
		path := filepath.Join(dir, StateDirName, name)
		if fileExists(path) {
			return path, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LoadManifest re-reads the manifest file from disk. Sync calls this on
// every run so replays observe manifest edits without re-fetching.
func (w *Workspace) LoadManifest(opts manifest.Options) (*manifest.Processed, error) {
	return manifest.LoadFile(w.ManifestPath, opts)
}

// RepoPath maps a repo destination to its filesystem path.
func (w *Workspace) RepoPath(dest string) string {
	return filepath.Join(w.Root, filepath.FromSlash(dest))
}

// Initialized reports whether the workspace has been marked initialized.
func (w *Workspace) Initialized() bool {
	return w.Config != nil && w.Config.Initialized
}

// MarkInitialized persists the initialized flag. Idempotent.
func (w *Workspace) MarkInitialized() error {
	cfg := w.Config
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Initialized = true
	if err := SaveConfig(filepath.Join(w.Root, StateDirName, ConfigFileName), cfg); err != nil {
		return err
	}
	w.Config = cfg
	return nil
}
