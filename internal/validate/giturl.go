// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package validate provides validated value types for repository URLs,
// branch names, and workspace paths. All parsers apply their security
// checks in a fixed order and report the first failure.
package validate

import (
	"fmt"
	"net/netip"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxURLLength is the maximum accepted URL length in bytes.
const MaxURLLength = 2048

// allowedSchemes lists URL schemes accepted after normalisation.
var allowedSchemes = map[string]bool{
	"https": true,
	"http":  true,
	"ssh":   true,
	"git":   true,
}

// injectionTokens are substrings that are never legitimate in a repository
// URL. Checked on the lowercased input before and after normalisation.
var injectionTokens = []string{
	"javascript:",
	"data:",
	"vbscript:",
	"file:",
	"about:",
	"chrome:",
	"../",
	`..\`,
	`\\`,
	"<",
	">",
	"`",
	"{",
	"}",
	"eval(",
	"onload=",
	"onerror=",
	"%00",
	`\x`,
	`\u`,
}

// blockedHosts are hostnames that always denote local or metadata services.
var blockedHosts = map[string]bool{
	"localhost":                true,
	"0.0.0.0":                  true,
	"127.0.0.1":                true,
	"::1":                      true,
	"169.254.169.254":          true,
	"metadata.google.internal": true,
	"metadata":                 true,
}

// privateRanges are IPv4/IPv6 ranges rejected as clone origins.
var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("fc00::/7"),
}

// GitURL is a validated repository origin. Immutable after construction.
type GitURL struct {
	scheme string
	host   string
	// path is the organisation-qualified repository path without the
	// leading slash or ".git" suffix.
	path string
}

// Scheme returns the URL scheme after normalisation.
func (u *GitURL) Scheme() string { return u.scheme }

// Host returns the host (possibly with port).
func (u *GitURL) Host() string { return u.host }

// Path returns the repository path without leading slash or ".git".
func (u *GitURL) Path() string { return u.path }

// String returns the canonical https-style form.
func (u *GitURL) String() string {
	return fmt.Sprintf("%s://%s/%s", u.scheme, u.host, u.path)
}

// HTTPS returns the URL rewritten to the https scheme.
func (u *GitURL) HTTPS() string {
	return fmt.Sprintf("https://%s/%s", u.host, u.path)
}

// SSH returns the scp-like ssh form of the URL.
func (u *GitURL) SSH() string {
	return fmt.Sprintf("git@%s:%s.git", u.host, u.path)
}

// SameRepo reports whether two URLs denote the same repository.
// Scheme and ".git" suffix are ignored; the host comparison is
// case-insensitive.
func (u *GitURL) SameRepo(other *GitURL) bool {
	if other == nil {
		return false
	}
	return strings.EqualFold(u.host, other.host) && u.path == other.path
}

// ParseGitURL validates and normalises a repository URL.
//
// Normalisation: whitespace is trimmed, the scp-like ssh form
// "git@host:owner/repo[.git]" is rewritten to "https://host/owner/repo",
// "git://" is rewritten to "https://", and the ".git" suffix is stripped.
// Security rules run before and after normalisation; the first failing rule
// wins.
func ParseGitURL(s string) (*GitURL, error) {
	s = strings.TrimSpace(s)

	if err := checkURLSecurity(s); err != nil {
		return nil, err
	}

	normalized := normalizeGitURL(s)

	if err := checkURLSecurity(normalized); err != nil {
		return nil, err
	}

	scheme, rest, ok := strings.Cut(normalized, "://")
	if !ok {
		return nil, &URLError{URL: s, Reason: "missing scheme"}
	}
	if !allowedSchemes[scheme] {
		return nil, &URLError{URL: s, Reason: fmt.Sprintf("scheme %q not allowed", scheme)}
	}

	// A second "//" after the scheme separator hides redirect tricks.
	if strings.Contains(rest, "//") {
		return nil, &URLError{URL: s, Reason: "double slash after scheme"}
	}

	host, path, _ := strings.Cut(rest, "/")
	if host == "" {
		return nil, &URLError{URL: s, Reason: "missing host"}
	}
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil, &URLError{URL: s, Reason: "missing repository path"}
	}

	if err := checkHost(host); err != nil {
		return nil, &URLError{URL: s, Reason: err.Error()}
	}
	if err := checkRepoPath(path); err != nil {
		return nil, &URLError{URL: s, Reason: err.Error()}
	}

	return &GitURL{scheme: scheme, host: host, path: path}, nil
}

// CheckRawURL applies the length, control-byte, injection, and NFC rules to
// a backend-specific URL (svn, p4) without forcing Git URL structure on it.
func CheckRawURL(s string) error {
	return checkURLSecurity(strings.TrimSpace(s))
}

// normalizeGitURL rewrites the accepted input shapes to an https-style URL.
func normalizeGitURL(s string) string {
	s = strings.TrimSuffix(s, "/")

	// scp-like ssh form: git@host:owner/repo
	if strings.HasPrefix(s, "git@") && !strings.Contains(s, "://") {
		rest := strings.TrimPrefix(s, "git@")
		host, path, ok := strings.Cut(rest, ":")
		if ok {
			s = "https://" + host + "/" + path
		}
	}

	if strings.HasPrefix(s, "ssh://git@") {
		s = "ssh://" + strings.TrimPrefix(s, "ssh://git@")
	}
	if strings.HasPrefix(s, "git://") {
		s = "https://" + strings.TrimPrefix(s, "git://")
	}

	s = strings.TrimSuffix(s, ".git")

	return s
}

func checkURLSecurity(s string) error {
	if s == "" {
		return &URLError{URL: s, Reason: "empty URL"}
	}
	if len(s) > MaxURLLength {
		return &URLError{URL: s, Reason: fmt.Sprintf("URL exceeds %d bytes", MaxURLLength)}
	}
	for _, r := range s {
		if r < 0x20 && r != '\t' {
			return &URLError{URL: s, Reason: "control character in URL"}
		}
		if r == 0x7f {
			return &URLError{URL: s, Reason: "control character in URL"}
		}
	}

	lower := strings.ToLower(s)
	for _, token := range injectionTokens {
		if strings.Contains(lower, token) {
			return &URLError{URL: s, Reason: fmt.Sprintf("injection pattern %q detected", token)}
		}
	}

	// Unicode normalisation must be a no-op; otherwise the URL carries
	// homoglyph or combining-character tricks.
	if norm.NFC.String(s) != s {
		return &URLError{URL: s, Reason: "URL is not in Unicode NFC form"}
	}

	return nil
}

func checkHost(host string) error {
	lowerHost := strings.ToLower(host)
	bare := lowerHost
	if h, _, ok := strings.Cut(lowerHost, ":"); ok && !strings.Contains(h, "]") {
		// host:port, unless this is a bare IPv6 literal.
		if _, err := netip.ParseAddr(lowerHost); err != nil {
			bare = h
		}
	}
	bare = strings.Trim(bare, "[]")

	if blockedHosts[bare] {
		return fmt.Errorf("host %q not allowed", bare)
	}

	if addr, err := netip.ParseAddr(bare); err == nil {
		if addr.IsLoopback() || addr.IsUnspecified() {
			return fmt.Errorf("loopback or unspecified address not allowed")
		}
		for _, p := range privateRanges {
			if p.Contains(addr) {
				return fmt.Errorf("Private IP address not allowed: %s", bare)
			}
		}
	}

	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == ':' || r == '-' || r == '[' || r == ']':
		default:
			return fmt.Errorf("invalid character %q in host", r)
		}
	}

	return nil
}

func checkRepoPath(path string) error {
	for _, r := range path {
		switch r {
		case '<', '>', '"', '|', '?', '*':
			return fmt.Errorf("invalid character %q in repository path", r)
		}
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("control character in repository path")
		}
	}
	return nil
}

// URLError reports a rejected repository URL.
type URLError struct {
	URL    string
	Reason string
}

// Error implements the error interface.
func (e *URLError) Error() string {
	return fmt.Sprintf("invalid URL %q: %s", e.URL, e.Reason)
}
