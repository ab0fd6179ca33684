// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package manifest loads, validates, filters, merges, and diffs workspace
// manifests. A manifest is the declarative YAML description of every
// repository in a workspace, its destination path, branch, groups, and
// post-clone file placements.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ScmKind identifies the version control system backing a repository.
type ScmKind string

const (
	// ScmGit is the default backend.
	ScmGit ScmKind = "git"

	// ScmSvn is the Subversion backend.
	ScmSvn ScmKind = "svn"

	// ScmP4 is the Perforce backend.
	ScmP4 ScmKind = "p4"
)

// IsValid returns true for a known SCM kind (empty means git).
func (k ScmKind) IsValid() bool {
	return k == "" || k == ScmGit || k == ScmSvn || k == ScmP4
}

// OrDefault resolves the empty kind to git.
func (k ScmKind) OrDefault() ScmKind {
	if k == "" {
		return ScmGit
	}
	return k
}

// Remote is one named remote of a repository.
type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Remotes is an ordered name→URL mapping. YAML mappings lose ordering with
// plain maps, so the type unmarshals from a mapping node directly.
type Remotes []Remote

// UnmarshalYAML decodes a YAML mapping preserving key order.
func (r *Remotes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("remotes must be a mapping")
	}
	out := make(Remotes, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out = append(out, Remote{
			Name: node.Content[i].Value,
			URL:  node.Content[i+1].Value,
		})
	}
	*r = out
	return nil
}

// MarshalYAML encodes the remotes back to a mapping in declaration order.
func (r Remotes) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, remote := range r {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: remote.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: remote.URL},
		)
	}
	return node, nil
}

// MarshalJSON encodes the remotes as a JSON object in declaration order.
func (r Remotes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, remote := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(remote.Name)
		if err != nil {
			return nil, err
		}
		url, err := json.Marshal(remote.URL)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(url)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the URL of the named remote.
func (r Remotes) Get(name string) (string, bool) {
	for _, remote := range r {
		if remote.Name == name {
			return remote.URL, true
		}
	}
	return "", false
}

// Equal compares two remote lists by name, URL, and order.
func (r Remotes) Equal(other Remotes) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

// CopyDirective copies a file from inside a repository to a workspace path
// after a successful sync.
type CopyDirective struct {
	File string `yaml:"file" json:"file"`
	Dest string `yaml:"dest" json:"dest"`
}

// SymlinkDirective creates a symlink at Source pointing to Target after a
// successful sync. Source is workspace-relative.
type SymlinkDirective struct {
	Source string `yaml:"source" json:"source"`
	Target string `yaml:"target" json:"target"`
}

// Repo is one repository entry in a manifest. Constructed by the loader and
// immutable thereafter.
type Repo struct {
	// Dest is the workspace-relative destination path; unique per manifest.
	Dest string `yaml:"dest" json:"dest"`

	// URL is the clone origin (Git URL, or backend-specific for svn/p4).
	URL string `yaml:"url" json:"url"`

	// Scm selects the backend; empty means git.
	Scm ScmKind `yaml:"scm,omitempty" json:"scm,omitempty"`

	// Branch is the branch to track after clone.
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`

	// SHA1 pins the checkout to an exact commit.
	SHA1 string `yaml:"sha1,omitempty" json:"sha1,omitempty"`

	// Tag pins the checkout to a tag.
	Tag string `yaml:"tag,omitempty" json:"tag,omitempty"`

	// Revision is the backend-specific revision (svn/p4).
	Revision string `yaml:"revision,omitempty" json:"revision,omitempty"`

	// Remotes lists extra remotes; the loader injects "origin" from URL
	// when absent.
	Remotes Remotes `yaml:"remotes,omitempty" json:"remotes,omitempty"`

	// Groups names the groups this repo belongs to (inline form).
	Groups []string `yaml:"groups,omitempty" json:"groups,omitempty"`

	// Copy lists post-clone file copies.
	Copy []CopyDirective `yaml:"copy,omitempty" json:"copy,omitempty"`

	// Symlink lists post-clone symlinks.
	Symlink []SymlinkDirective `yaml:"symlink,omitempty" json:"symlink,omitempty"`
}

// CheckoutRef returns the ref a clone should end up on: sha1 wins over tag,
// tag over revision.
func (r Repo) CheckoutRef() string {
	switch {
	case r.SHA1 != "":
		return r.SHA1
	case r.Tag != "":
		return r.Tag
	default:
		return r.Revision
	}
}

// Group is a named subset of repositories.
type Group struct {
	Repos       []string `yaml:"repos" json:"repos"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// Include references another manifest whose repos and groups are merged in.
// Consumed during loading only, never persisted.
type Include struct {
	URL      string   `yaml:"url" json:"url"`
	Revision string   `yaml:"revision,omitempty" json:"revision,omitempty"`
	Groups   []string `yaml:"groups,omitempty" json:"groups,omitempty"`

	// Priority is accepted for forward compatibility; the merge rule is
	// currently "base wins" regardless of priority.
	Priority int `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// Deprecation is one deprecated-feature notice in the future block.
type Deprecation struct {
	Feature        string `yaml:"feature" json:"feature"`
	Message        string `yaml:"message" json:"message"`
	RemovalVersion string `yaml:"removal_version,omitempty" json:"removal_version,omitempty"`
}

// Future carries forward-compatibility metadata. It emits warnings during
// loading and never modifies the manifest.
type Future struct {
	MinVersion string        `yaml:"min_version,omitempty" json:"min_version,omitempty"`
	Deprecated []Deprecation `yaml:"deprecated,omitempty" json:"deprecated,omitempty"`
}

// Manifest is an ordered list of repositories plus groups and defaults.
type Manifest struct {
	Repos         []Repo           `yaml:"repos" json:"repos"`
	Groups        map[string]Group `yaml:"groups,omitempty" json:"groups,omitempty"`
	DefaultBranch string           `yaml:"default_branch,omitempty" json:"default_branch,omitempty"`
	Includes      []Include        `yaml:"includes,omitempty" json:"includes,omitempty"`
	Future        *Future          `yaml:"future,omitempty" json:"future,omitempty"`
}

// DestIndex builds a dest→index map for the repo list. Group filtering and
// diffing look repos up by dest; build the map once and reuse it.
func (m *Manifest) DestIndex() map[string]int {
	idx := make(map[string]int, len(m.Repos))
	for i, repo := range m.Repos {
		idx[repo.Dest] = i
	}
	return idx
}

// RepoByDest returns the repo with the given destination.
func (m *Manifest) RepoByDest(dest string) (*Repo, bool) {
	for i := range m.Repos {
		if m.Repos[i].Dest == dest {
			return &m.Repos[i], true
		}
	}
	return nil, false
}

// GroupNames returns the defined group names.
func (m *Manifest) GroupNames() []string {
	names := make([]string, 0, len(m.Groups))
	for name := range m.Groups {
		names = append(names, name)
	}
	return names
}
