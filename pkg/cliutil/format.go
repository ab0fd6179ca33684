// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cliutil

import (
	"fmt"
	"strings"
)

// CoreFormats contains the output formats supported by reporting commands.
var CoreFormats = []string{"text", "json", "yaml"}

// ValidateFormat checks if the given format is in the allowed list.
func ValidateFormat(format string, allowed []string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format: %s (allowed: %s)", format, strings.Join(allowed, ", "))
}

// IsMachineFormat returns true for formats intended for machine consumption.
func IsMachineFormat(format string) bool {
	f := strings.ToLower(format)
	return f == "json" || f == "yaml"
}
