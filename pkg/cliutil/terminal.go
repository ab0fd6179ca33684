// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cliutil

import (
	"os"

	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether stdout is an interactive terminal.
func IsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ExitError carries a specific process exit code through RunE.
type ExitError struct {
	Code int
	Msg  string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Msg
}
