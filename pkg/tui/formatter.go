// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"

	"github.com/archmagece/wmgr/pkg/engine"
)

// stateGlyphs maps repo states to their status-table markers.
var stateGlyphs = map[engine.RepoState]string{
	engine.StateClean:       "✓",
	engine.StateDirty:       "●",
	engine.StateMissing:     "✗",
	engine.StateWrongBranch: "⇄",
	engine.StateOutOfSync:   "↕",
	engine.StateError:       "!",
}

// RenderStatusTable renders a status report as an aligned text table.
func RenderStatusTable(report *engine.StatusReport, showBranch, compact bool) string {
	var b strings.Builder

	destWidth := 4
	for _, status := range report.Statuses {
		if len(status.Dest) > destWidth {
			destWidth = len(status.Dest)
		}
	}

	for _, status := range report.Statuses {
		glyph := stateGlyphs[status.State]
		line := fmt.Sprintf("%s %-*s %s", glyph, destWidth, status.Dest, status.State)

		if showBranch && status.Branch != "" {
			line += " [" + status.Branch + "]"
		}
		if !compact {
			line += statusDetail(status)
		}

		b.WriteString(styleFor(status.State).Render(line))
		b.WriteByte('\n')
	}

	b.WriteString(SubtleStyle.Render(fmt.Sprintf("%d clean, %d dirty, %d missing, %d error (total %d)",
		report.CleanCount, report.DirtyCount, report.MissingCount, report.ErrorCount, report.Total)))
	b.WriteByte('\n')

	return b.String()
}

func statusDetail(status engine.RepoStatus) string {
	var parts []string
	if status.Staged > 0 {
		parts = append(parts, fmt.Sprintf("%d staged", status.Staged))
	}
	if status.Modified > 0 {
		parts = append(parts, fmt.Sprintf("%d modified", status.Modified))
	}
	if status.Untracked > 0 {
		parts = append(parts, fmt.Sprintf("%d untracked", status.Untracked))
	}
	if status.Ahead > 0 {
		parts = append(parts, fmt.Sprintf("↑%d", status.Ahead))
	}
	if status.Behind > 0 {
		parts = append(parts, fmt.Sprintf("↓%d", status.Behind))
	}
	if status.Error != "" {
		parts = append(parts, status.Error)
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func styleFor(state engine.RepoState) func(...string) string {
	switch state {
	case engine.StateClean:
		return CleanStyle.Render
	case engine.StateDirty, engine.StateWrongBranch, engine.StateOutOfSync:
		return DirtyStyle.Render
	default:
		return ErrorStyle.Render
	}
}
