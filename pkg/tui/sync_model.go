// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package tui renders live terminal output: the sync progress model and
// the status table styles.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/archmagece/wmgr/pkg/engine"
)

// RepoStartedMsg marks a repo entering the worker pool.
type RepoStartedMsg struct {
	Dest string
}

// RepoFinishedMsg carries one finished repo result.
type RepoFinishedMsg struct {
	Result engine.SyncResult
}

// SyncDoneMsg ends the program with the final report.
type SyncDoneMsg struct {
	Report *engine.SyncReport
}

// SyncModel is a live view of a reconciliation run: finished repos on top,
// then the repos still in flight, then the counter line.
type SyncModel struct {
	total    int
	active   []string
	finished []engine.SyncResult
	report   *engine.SyncReport
	width    int
	quitting bool
}

// NewSyncModel creates a progress model for a run over total repos.
func NewSyncModel(total int) SyncModel {
	return SyncModel{total: total, width: 80}
}

// Init implements tea.Model.
func (m SyncModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case RepoStartedMsg:
		m.active = append(m.active, msg.Dest)
		return m, nil

	case RepoFinishedMsg:
		m.active = removeDest(m.active, msg.Result.Dest)
		m.finished = append(m.finished, msg.Result)
		return m, nil

	case SyncDoneMsg:
		m.report = msg.Report
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m SyncModel) View() string {
	var b strings.Builder

	for _, result := range m.finished {
		b.WriteString(renderResult(result))
		b.WriteByte('\n')
	}

	for _, dest := range m.active {
		b.WriteString(SubtleStyle.Render("… " + dest))
		b.WriteByte('\n')
	}

	b.WriteString(fmt.Sprintf("%d/%d repositories\n", len(m.finished), m.total))

	if m.report != nil {
		b.WriteString(RenderSyncSummary(m.report))
	}

	return b.String()
}

func renderResult(result engine.SyncResult) string {
	switch result.Action {
	case engine.ActionCloned:
		return CleanStyle.Render("+ "+result.Dest) + SubtleStyle.Render(" (cloned)")
	case engine.ActionUpdated:
		return CleanStyle.Render("↓ "+result.Dest) + SubtleStyle.Render(" (updated)")
	case engine.ActionSkipped:
		return DirtyStyle.Render("- "+result.Dest) + SubtleStyle.Render(" (skipped)")
	default:
		return ErrorStyle.Render("✗ "+result.Dest) + SubtleStyle.Render(" "+result.Error)
	}
}

// RenderSyncSummary renders the final counter line of a sync report.
func RenderSyncSummary(report *engine.SyncReport) string {
	line := fmt.Sprintf("cloned %d, updated %d, skipped %d, failed %d",
		report.ClonedCount, report.UpdatedCount, report.SkippedCount, report.FailedCount)
	if report.FailedCount > 0 {
		return ErrorStyle.Render(line)
	}
	return CleanStyle.Render(line)
}

func removeDest(list []string, dest string) []string {
	out := list[:0]
	for _, item := range list {
		if item != dest {
			out = append(out, item)
		}
	}
	return out
}

// ProgramSink adapts a running bubbletea program into an engine
// ProgressSink. Safe for concurrent workers; Program.Send is.
type ProgramSink struct {
	Program *tea.Program
}

// RepoStarted implements engine.ProgressSink.
func (s ProgramSink) RepoStarted(dest string) {
	s.Program.Send(RepoStartedMsg{Dest: dest})
}

// RepoFinished implements engine.ProgressSink.
func (s ProgramSink) RepoFinished(result engine.SyncResult) {
	s.Program.Send(RepoFinishedMsg{Result: result})
}
