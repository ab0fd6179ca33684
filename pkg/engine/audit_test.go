//go:build !windows

package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/archmagece/wmgr/internal/testutil"
)

func TestParseAuditorOutput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "empty", input: ""},
		{
			name:  "flat shape",
			input: `{"vulnerabilities":[{"id":"CVE-1","package":"libx","severity":"high"}]}`,
			want:  1,
		},
		{
			name:  "nested shape",
			input: `{"vulnerabilities":{"list":[{"advisory":{"id":"RUSTSEC-1","package":"a","severity":"critical"}}]}}`,
			want:  1,
		},
		{name: "no findings", input: `{"vulnerabilities":[]}`},
		{name: "garbage", input: "not json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := parseAuditorOutput(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(findings) != tt.want {
				t.Errorf("findings = %d, want %d", len(findings), tt.want)
			}
		})
	}
}

func TestFindingSeverityGate(t *testing.T) {
	tests := []struct {
		severity string
		want     bool
	}{
		{"critical", true},
		{"HIGH", true},
		{"medium", false},
		{"low", false},
		{"", false},
	}
	for _, tt := range tests {
		f := Finding{Severity: tt.severity}
		if f.IsCriticalOrHigh() != tt.want {
			t.Errorf("IsCriticalOrHigh(%q) = %v", tt.severity, !tt.want)
		}
	}
}

func TestAuditAggregatesFindings(t *testing.T) {
	dir := testutil.TempWorkspace(t, `
repos:
  - dest: vulnerable
    url: https://github.com/example/vulnerable
  - dest: clean
    url: https://github.com/example/clean
  - dest: absent
    url: https://github.com/example/absent
`)
	for _, dest := range []string{"vulnerable", "clean"} {
		if err := os.MkdirAll(filepath.Join(dir, dest), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	ws := openWorkspace(t, dir)

	// The fake auditor keys its report off the repo directory name.
	auditor := `if [ "$(basename "$PWD")" = vulnerable ]; then ` +
		`echo '{"vulnerabilities":[{"id":"CVE-1","package":"libx","severity":"critical"}]}'; ` +
		`else echo '{"vulnerabilities":[]}'; fi`

	report, err := New().Audit(context.Background(), ws, AuditOptions{AuditorCommand: auditor})
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}

	if report.AuditedCount != 2 {
		t.Errorf("audited = %d, want 2", report.AuditedCount)
	}
	if report.SkippedCount != 1 {
		t.Errorf("skipped = %d, want 1 (missing directory)", report.SkippedCount)
	}
	if report.VulnerableCount != 1 {
		t.Errorf("vulnerable = %d, want 1", report.VulnerableCount)
	}
	if !report.HasCriticalOrHigh() {
		t.Error("critical finding not gated")
	}
}

func TestAuditCleanWorkspace(t *testing.T) {
	dir := testutil.TempWorkspace(t, `
repos:
  - dest: a
    url: https://github.com/example/a
`)
	if err := os.MkdirAll(filepath.Join(dir, "a"), 0o755); err != nil {
		t.Fatal(err)
	}
	ws := openWorkspace(t, dir)

	report, err := New().Audit(context.Background(), ws, AuditOptions{
		AuditorCommand: `echo '{"vulnerabilities":[]}'`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.HasCriticalOrHigh() {
		t.Error("clean audit gated")
	}
	if report.VulnerableCount != 0 {
		t.Errorf("vulnerable = %d", report.VulnerableCount)
	}
}
