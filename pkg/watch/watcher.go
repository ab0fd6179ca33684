// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package watch monitors the workspace manifest file and reports change
// events. Editors write through renames and temp files, so the watcher
// observes the manifest's directory and filters by name, with debouncing.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is one observed manifest change.
type Event struct {
	// Path is the manifest path that changed.
	Path string

	// Timestamp is when the (debounced) change was reported.
	Timestamp time.Time
}

// Options configure a manifest watcher.
type Options struct {
	// DebounceDuration coalesces rapid successive writes; zero means 500ms.
	DebounceDuration time.Duration
}

// Watcher monitors a manifest file for changes.
type Watcher struct {
	fswatch  *fsnotify.Watcher
	options  Options
	events   chan Event
	errors   chan error
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewWatcher creates a manifest watcher.
func NewWatcher(options Options) (*Watcher, error) {
	if options.DebounceDuration == 0 {
		options.DebounceDuration = 500 * time.Millisecond
	}

	fswatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	return &Watcher{
		fswatch: fswatch,
		options: options,
		events:  make(chan Event, 16),
		errors:  make(chan error, 16),
	}, nil
}

// Start begins monitoring the manifest at path. It returns immediately;
// events arrive on the Events channel.
func (w *Watcher) Start(ctx context.Context, manifestPath string) error {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return fmt.Errorf("resolve manifest path: %w", err)
	}

	if err := w.fswatch.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch manifest directory: %w", err)
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.loop(ctx, abs)

	return nil
}

// Events returns the channel for receiving manifest change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel for receiving watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher and closes its channels.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		err = w.fswatch.Close()
		w.wg.Wait()
		close(w.events)
		close(w.errors)
	})
	return err
}

func (w *Watcher) loop(ctx context.Context, manifestPath string) {
	defer w.wg.Done()

	var (
		debounce *time.Timer
		pending  <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fswatch.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != manifestPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.options.DebounceDuration)
			} else {
				debounce.Reset(w.options.DebounceDuration)
			}
			pending = debounce.C

		case <-pending:
			pending = nil
			select {
			case w.events <- Event{Path: manifestPath, Timestamp: time.Now()}:
			default:
				// Drop when the consumer lags; the next write re-fires.
			}

		case err, ok := <-w.fswatch.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}
