// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package manifest

import (
	"fmt"

	"github.com/archmagece/wmgr/internal/validate"
)

// Validator enforces the manifest invariants: unique destinations, valid
// URLs and branches, resolvable group members, and traversal-free file
// directives. The first offence is reported.
type Validator struct{}

// NewValidator creates a manifest validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the manifest against all invariants.
func (v *Validator) Validate(m *Manifest) error {
	if m == nil {
		return &ValidationError{Msg: "manifest is nil"}
	}

	seen := make(map[string]bool, len(m.Repos))
	for i := range m.Repos {
		repo := &m.Repos[i]
		if err := v.validateRepo(repo); err != nil {
			return err
		}
		if seen[repo.Dest] {
			return &ValidationError{Msg: fmt.Sprintf("Duplicate destination path: %s", repo.Dest)}
		}
		seen[repo.Dest] = true
	}

	idx := m.DestIndex()
	for name, group := range m.Groups {
		for _, dest := range group.Repos {
			if _, ok := idx[dest]; !ok {
				return &ValidationError{Msg: fmt.Sprintf("group %q references unknown repo: %s", name, dest)}
			}
		}
	}

	return nil
}

func (v *Validator) validateRepo(repo *Repo) error {
	if _, err := validate.ParseFilePath(repo.Dest, true); err != nil {
		return &ValidationError{Msg: fmt.Sprintf("repo dest: %v", err)}
	}
	if repo.URL == "" {
		return &ValidationError{Msg: fmt.Sprintf("repo %s: missing url", repo.Dest)}
	}
	if !repo.Scm.IsValid() {
		return &ValidationError{Msg: fmt.Sprintf("repo %s: unknown scm %q", repo.Dest, repo.Scm)}
	}

	switch repo.Scm.OrDefault() {
	case ScmGit:
		if _, err := validate.ParseGitURL(repo.URL); err != nil {
			return &ValidationError{Msg: fmt.Sprintf("repo %s: %v", repo.Dest, err)}
		}
		for _, remote := range repo.Remotes {
			if _, err := validate.ParseGitURL(remote.URL); err != nil {
				return &ValidationError{Msg: fmt.Sprintf("repo %s remote %s: %v", repo.Dest, remote.Name, err)}
			}
		}
	default:
		if err := validate.CheckRawURL(repo.URL); err != nil {
			return &ValidationError{Msg: fmt.Sprintf("repo %s: %v", repo.Dest, err)}
		}
	}

	if repo.Branch != "" {
		if _, err := validate.ParseBranchName(repo.Branch); err != nil {
			return &ValidationError{Msg: fmt.Sprintf("repo %s: %v", repo.Dest, err)}
		}
	}

	// Copy sources resolve under the owning repo; destinations and symlink
	// sources stay inside the workspace. All reject traversal before any I/O.
	for _, cp := range repo.Copy {
		if _, err := validate.ParseFilePath(cp.File, true); err != nil {
			return &ValidationError{Msg: fmt.Sprintf("repo %s copy file: %v", repo.Dest, err)}
		}
		if _, err := validate.ParseFilePath(cp.Dest, true); err != nil {
			return &ValidationError{Msg: fmt.Sprintf("repo %s copy dest: %v", repo.Dest, err)}
		}
	}
	for _, link := range repo.Symlink {
		if _, err := validate.ParseFilePath(link.Source, true); err != nil {
			return &ValidationError{Msg: fmt.Sprintf("repo %s symlink source: %v", repo.Dest, err)}
		}
		if link.Target == "" {
			return &ValidationError{Msg: fmt.Sprintf("repo %s symlink: empty target", repo.Dest)}
		}
	}

	return nil
}
