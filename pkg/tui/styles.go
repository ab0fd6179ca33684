// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package tui

import "github.com/charmbracelet/lipgloss"

// Pre-defined styles for consistent UI appearance.
var (
	// HeaderStyle is used for section headers.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	// CleanStyle is used for repositories in a clean state.
	CleanStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	// DirtyStyle is used for repositories with uncommitted changes.
	DirtyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	// ErrorStyle is used for failed repositories.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	// SubtleStyle is used for less important information.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)
