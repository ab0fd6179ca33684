// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package validate

import "testing"

func TestParseFilePath(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		mustRelative bool
		wantErr      bool
	}{
		{name: "simple relative", input: "repo1"},
		{name: "nested relative", input: "group/repo"},
		{name: "absolute allowed", input: "/opt/workspace"},
		{name: "absolute rejected when relative required", input: "/opt/ws", mustRelative: true, wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "traversal", input: "../outside", wantErr: true},
		{name: "embedded traversal", input: "a/../../b", wantErr: true},
		{name: "windows traversal", input: `a\..\b`, wantErr: true},
		{name: "nul byte", input: "a\x00b", wantErr: true},
		{name: "dot segment ok", input: "./a", mustRelative: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilePath(tt.input, tt.mustRelative)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFilePath(%q, %v) error = %v, wantErr %v", tt.input, tt.mustRelative, err, tt.wantErr)
			}
		})
	}
}

func TestParseBranchName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "main", input: "main"},
		{name: "slashes", input: "feature/login"},
		{name: "empty", input: "", wantErr: true},
		{name: "HEAD literal", input: "HEAD", wantErr: true},
		{name: "leading dot", input: ".hidden", wantErr: true},
		{name: "double dot", input: "a..b", wantErr: true},
		{name: "reflog syntax", input: "main@{1}", wantErr: true},
		{name: "trailing slash", input: "feature/", wantErr: true},
		{name: "space", input: "my branch", wantErr: true},
		{name: "control char", input: "a\tb", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBranchName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseBranchName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
