// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReportsManifestChange(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "wmgr.yml")
	if err := os.WriteFile(manifestPath, []byte("repos: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	watcher, err := NewWatcher(Options{DebounceDuration: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer watcher.Stop()

	if err := watcher.Start(context.Background(), manifestPath); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(manifestPath, []byte("repos: []\n# edited\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case event := <-watcher.Events():
		if filepath.Clean(event.Path) != manifestPath {
			t.Errorf("event path = %q, want %q", event.Path, manifestPath)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event within 5s")
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "wmgr.yml")
	if err := os.WriteFile(manifestPath, []byte("repos: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	watcher, err := NewWatcher(Options{DebounceDuration: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer watcher.Stop()

	if err := watcher.Start(context.Background(), manifestPath); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case event := <-watcher.Events():
		t.Errorf("unexpected event for sibling file: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	watcher, err := NewWatcher(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := watcher.Stop(); err != nil {
		t.Errorf("first Stop: %v", err)
	}
	if err := watcher.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}
