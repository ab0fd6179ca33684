// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package manifest

// FilterGroups returns a new manifest restricted to the named groups.
// The repo list is the deduplicated union of the groups' members in
// original manifest order; the groups mapping keeps only the named groups
// with member lists intersected against the filtered repo set.
func FilterGroups(m *Manifest, names []string) (*Manifest, error) {
	selected := make(map[string]bool)
	for _, name := range names {
		group, ok := m.Groups[name]
		if !ok {
			return nil, &GroupNotFoundError{Name: name}
		}
		for _, dest := range group.Repos {
			selected[dest] = true
		}
	}

	filtered := &Manifest{
		DefaultBranch: m.DefaultBranch,
	}
	for _, repo := range m.Repos {
		if selected[repo.Dest] {
			filtered.Repos = append(filtered.Repos, repo)
		}
	}

	filtered.Groups = make(map[string]Group, len(names))
	for _, name := range names {
		group := m.Groups[name]
		var members []string
		for _, dest := range group.Repos {
			if selected[dest] {
				members = append(members, dest)
			}
		}
		filtered.Groups[name] = Group{Repos: members, Description: group.Description}
	}

	return filtered, nil
}
