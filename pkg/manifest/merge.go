// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package manifest

// merge folds an included manifest into the base, biased to the base:
// repos whose dest already exists in the base are ignored, group member
// lists are unioned keeping existing members first, and the base default
// branch wins when set.
func merge(base, included *Manifest) {
	idx := base.DestIndex()
	for _, repo := range included.Repos {
		if _, exists := idx[repo.Dest]; exists {
			continue
		}
		base.Repos = append(base.Repos, repo)
		idx[repo.Dest] = len(base.Repos) - 1
	}

	for name, group := range included.Groups {
		if base.Groups == nil {
			base.Groups = make(map[string]Group)
		}
		existing, ok := base.Groups[name]
		if !ok {
			base.Groups[name] = group
			continue
		}
		for _, dest := range group.Repos {
			if !containsString(existing.Repos, dest) {
				existing.Repos = append(existing.Repos, dest)
			}
		}
		if existing.Description == "" {
			existing.Description = group.Description
		}
		base.Groups[name] = existing
	}

	if base.DefaultBranch == "" {
		base.DefaultBranch = included.DefaultBranch
	}
}
