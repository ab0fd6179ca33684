// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package validate

import (
	"fmt"
	"strings"
)

// ParseFilePath validates a workspace-relative or absolute path.
// Rejects ".." segments, embedded NUL bytes, and, when mustBeRelative is
// set, a leading separator.
func ParseFilePath(s string, mustBeRelative bool) (string, error) {
	if s == "" {
		return "", &PathError{Path: s, Reason: "empty path"}
	}
	if strings.ContainsRune(s, 0) {
		return "", &PathError{Path: s, Reason: "NUL byte in path"}
	}
	if mustBeRelative && (strings.HasPrefix(s, "/") || strings.HasPrefix(s, `\`)) {
		return "", &PathError{Path: s, Reason: "absolute path not allowed"}
	}
	for _, seg := range strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", &PathError{Path: s, Reason: "path traversal not allowed"}
		}
	}

	return s, nil
}

// PathError reports a rejected path.
type PathError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}
