// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package engine implements the orchestration core: the sync reconciler,
// the foreach fan-out runner, the status and audit aggregators, and the
// post-clone file-operations processor. Parallel fan-out goes through
// bounded errgroup pools. Sync and foreach workers send results over a
// channel to a single aggregator; audit and status workers each fill only
// their own slot of a preallocated result slice, and the report counters
// are computed after every worker has finished.
package engine

import (
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/archmagece/wmgr/internal/logging"
	"github.com/archmagece/wmgr/pkg/manifest"
	"github.com/archmagece/wmgr/pkg/scm"
)

// BackendFactory resolves an SCM kind to a backend. Injectable so tests
// can substitute a mock backend.
type BackendFactory func(kind manifest.ScmKind) (scm.Backend, error)

// Engine runs workspace operations. The zero value is not usable; use New.
type Engine struct {
	backends BackendFactory
	log      *logrus.Entry
}

// Option configures an Engine.
type Option func(*Engine)

// WithBackendFactory overrides the SCM backend factory.
func WithBackendFactory(factory BackendFactory) Option {
	return func(e *Engine) {
		e.backends = factory
	}
}

// WithLogger overrides the engine logger.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New creates an engine backed by the real SCM tools.
func New(opts ...Option) *Engine {
	e := &Engine{
		backends: scm.New,
		log:      logging.NewLogger("engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// selectRepos applies the optional group filter and returns the target
// repo list in manifest order.
func selectRepos(m *manifest.Manifest, groups []string) ([]manifest.Repo, error) {
	if len(groups) == 0 {
		return m.Repos, nil
	}

	filtered, err := manifest.FilterGroups(m, groups)
	if err != nil {
		return nil, err
	}
	return filtered.Repos, nil
}

// boundedParallel clamps the requested job count to the documented bound
// min(requested, cores), defaulting to the core count.
func boundedParallel(requested int) int {
	cores := runtime.NumCPU()
	if requested <= 0 {
		return cores
	}
	if requested > cores {
		return cores
	}
	return requested
}
