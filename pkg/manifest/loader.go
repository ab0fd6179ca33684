// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package manifest

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	goversion "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"
)

// ToolVersion is the running tool version, set by the CLI at startup.
// Used only to evaluate the future.min_version warning.
var ToolVersion = "0.0.0-dev"

// Options control manifest loading. The zero value is not usable; start
// from DefaultOptions.
type Options struct {
	// MaxDepth bounds include nesting.
	MaxDepth uint

	// AllowRemoteFetch permits http(s) includes.
	AllowRemoteFetch bool

	// DetectCycles enables circular include detection.
	DetectCycles bool

	// FetchTimeout bounds each remote include fetch.
	FetchTimeout time.Duration

	// HTTPClient overrides the fetch client; when nil a retrying client
	// with FetchTimeout is built for each fetch. The client is caller-owned and
	// must be safe for concurrent use.
	HTTPClient *http.Client
}

// DefaultOptions returns the documented loader defaults.
func DefaultOptions() Options {
	return Options{
		MaxDepth:         10,
		AllowRemoteFetch: true,
		DetectCycles:     true,
		FetchTimeout:     30 * time.Second,
	}
}

// IncludeRecord documents one resolved include in a processed manifest.
type IncludeRecord struct {
	URL       string
	Revision  string
	RepoCount int
}

// Processed is the result of a load: the merged manifest, warnings from the
// future block, and a record per resolved include.
type Processed struct {
	Manifest *Manifest
	Warnings []string
	Includes []IncludeRecord
}

// LoadFile loads and processes a manifest from a file on disk.
func LoadFile(path string, opts Options) (*Processed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	base, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve manifest dir: %w", err)
	}

	abs, _ := filepath.Abs(path)
	return load(data, base, opts, []string{abs}, 0)
}

// LoadURL loads a manifest from an http(s) URL or a local path.
func LoadURL(url string, opts Options) (*Processed, error) {
	if !isRemoteURL(url) {
		return LoadFile(url, opts)
	}

	if !opts.AllowRemoteFetch {
		return nil, &RemoteFetchError{URL: url, Reason: "disabled"}
	}

	data, err := fetchRemote(url, opts)
	if err != nil {
		return nil, err
	}

	return load(data, "", opts, []string{url}, 0)
}

// LoadBytes loads a manifest from raw bytes. Relative includes resolve
// against basePath when non-empty.
func LoadBytes(data []byte, basePath string, opts Options) (*Processed, error) {
	return load(data, basePath, opts, nil, 0)
}

// load is the recursive worker. It is stateless: the visited chain travels
// as an explicit argument so concurrent loads never share cycle state.
func load(data []byte, basePath string, opts Options, visited []string, depth uint) (*Processed, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Err: err}
	}

	reconcileGroups(&m)

	if err := NewValidator().Validate(&m); err != nil {
		return nil, err
	}

	processed := &Processed{Manifest: &m}
	processed.Warnings = append(processed.Warnings, futureWarnings(m.Future)...)

	for _, include := range m.Includes {
		resolved := resolveIncludeURL(include.URL, basePath)

		if opts.DetectCycles {
			for _, seen := range visited {
				if seen == resolved {
					chain := append(append([]string{}, visited...), resolved)
					return nil, &CircularDependencyError{Chain: chain}
				}
			}
		}
		if depth+1 > opts.MaxDepth {
			return nil, &DepthLimitError{Depth: depth + 1, Max: opts.MaxDepth}
		}

		subData, err := fetchInclude(resolved, opts)
		if err != nil {
			return nil, err
		}

		subBase := basePath
		if !isRemoteURL(resolved) {
			subBase = filepath.Dir(resolved)
		}

		sub, err := load(subData, subBase, opts, append(visited, resolved), depth+1)
		if err != nil {
			return nil, err
		}

		subManifest := sub.Manifest
		if len(include.Groups) > 0 {
			subManifest, err = FilterGroups(subManifest, include.Groups)
			if err != nil {
				return nil, err
			}
		}

		revision := include.Revision
		if revision == "" {
			revision = "HEAD"
		}
		processed.Includes = append(processed.Includes, IncludeRecord{
			URL:       resolved,
			Revision:  revision,
			RepoCount: len(subManifest.Repos),
		})
		processed.Includes = append(processed.Includes, sub.Includes...)
		processed.Warnings = append(processed.Warnings, sub.Warnings...)

		merge(&m, subManifest)
	}

	injectOriginRemotes(&m)

	return processed, nil
}

// reconcileGroups folds per-repo inline group names into the top-level
// groups mapping so the rest of the engine sees one canonical form.
func reconcileGroups(m *Manifest) {
	for _, repo := range m.Repos {
		for _, name := range repo.Groups {
			if m.Groups == nil {
				m.Groups = make(map[string]Group)
			}
			group := m.Groups[name]
			if !containsString(group.Repos, repo.Dest) {
				group.Repos = append(group.Repos, repo.Dest)
			}
			m.Groups[name] = group
		}
	}
}

// injectOriginRemotes ensures every repo carries an "origin" remote derived
// from its url.
func injectOriginRemotes(m *Manifest) {
	for i := range m.Repos {
		repo := &m.Repos[i]
		if _, ok := repo.Remotes.Get("origin"); !ok {
			repo.Remotes = append(Remotes{{Name: "origin", URL: repo.URL}}, repo.Remotes...)
		}
	}
}

// futureWarnings renders the future block into warnings. The block never
// modifies the manifest; an older tool keeps working and is only told so.
func futureWarnings(f *Future) []string {
	if f == nil {
		return nil
	}

	var warnings []string
	for _, d := range f.Deprecated {
		removal := d.RemovalVersion
		if removal == "" {
			removal = "a future version"
		}
		warnings = append(warnings, fmt.Sprintf("DEPRECATED: %s (will be removed in %s): %s", d.Feature, removal, d.Message))
	}

	if f.MinVersion != "" {
		warnings = append(warnings, minVersionWarning(f.MinVersion)...)
	}

	return warnings
}

func minVersionWarning(minVersion string) []string {
	required, err := goversion.NewVersion(minVersion)
	if err != nil {
		return []string{fmt.Sprintf("manifest declares unparseable min_version %q", minVersion)}
	}
	current, err := goversion.NewVersion(strings.TrimPrefix(ToolVersion, "v"))
	if err != nil {
		return nil
	}
	if current.LessThan(required) {
		return []string{fmt.Sprintf("manifest requires version %s or newer (running %s)", minVersion, ToolVersion)}
	}
	return nil
}

func resolveIncludeURL(url, basePath string) string {
	if isRemoteURL(url) || strings.HasPrefix(url, "git@") {
		return url
	}
	if filepath.IsAbs(url) || basePath == "" {
		return url
	}
	return filepath.Join(basePath, url)
}

func isRemoteURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func fetchInclude(resolved string, opts Options) ([]byte, error) {
	if isRemoteURL(resolved) {
		if !opts.AllowRemoteFetch {
			return nil, &RemoteFetchError{URL: resolved, Reason: "disabled"}
		}
		return fetchRemote(resolved, opts)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, &RemoteFetchError{URL: resolved, Err: err}
	}
	return data, nil
}

func fetchRemote(url string, opts Options) ([]byte, error) {
	client := opts.HTTPClient
	if client == nil {
		retry := retryablehttp.NewClient()
		retry.RetryMax = 2
		retry.HTTPClient.Timeout = opts.FetchTimeout
		retry.Logger = nil
		client = retry.StandardClient()
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, &RemoteFetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteFetchError{URL: url, Reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteFetchError{URL: url, Err: err}
	}
	return data, nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
