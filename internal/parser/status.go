// Package parser provides parsers for SCM command output.
// This package contains parsers for git porcelain status, ahead/behind
// counts, and svn status listings. All parsers are designed to handle edge
// cases and provide structured output.
package parser

import (
	"fmt"
	"strings"
)

// GitStatus is the structured form of "git status --porcelain" output.
type GitStatus struct {
	IsClean        bool
	StagedFiles    []string
	ModifiedFiles  []string
	UntrackedFiles []string
	ConflictFiles  []string
}

// ParseGitStatus parses the output of "git status --porcelain".
//
// Format:
// XY PATH
// where X = index status, Y = worktree status
//
// Example output:
//
//	M  README.md
//	A  newfile.go
//	?? untracked.txt
//	R  old.txt -> new.txt
func ParseGitStatus(output string) (*GitStatus, error) {
	status := &GitStatus{
		IsClean:        true,
		StagedFiles:    []string{},
		ModifiedFiles:  []string{},
		UntrackedFiles: []string{},
		ConflictFiles:  []string{},
	}

	if output == "" {
		// Empty output means clean working tree.
		return status, nil
	}

	for i, line := range SplitLines(output) {
		if IsEmptyLine(line) {
			continue
		}

		// Minimum length: "XY PATH" = 2 status characters + space + path.
		if len(line) < 4 {
			return nil, &ParseError{
				Line:    i,
				Content: line,
				Reason:  "line too short for status format",
			}
		}

		indexStatus := rune(line[0])
		worktreeStatus := rune(line[1])
		filePath := strings.TrimSpace(line[3:])

		// Renamed files carry "old -> new"; the new path is the staged one.
		if indexStatus == 'R' || worktreeStatus == 'R' {
			if _, newPath, ok := strings.Cut(filePath, " -> "); ok {
				status.StagedFiles = append(status.StagedFiles, strings.TrimSpace(newPath))
				status.IsClean = false
				continue
			}
		}

		if err := parseGitStatusCode(status, indexStatus, worktreeStatus, filePath); err != nil {
			return nil, &ParseError{
				Line:    i,
				Content: line,
				Reason:  err.Error(),
			}
		}
	}

	return status, nil
}

// parseGitStatusCode interprets the two-character status code.
func parseGitStatusCode(status *GitStatus, index, worktree rune, path string) error {
	switch index {
	case 'M', 'A', 'R', 'C':
		status.StagedFiles = append(status.StagedFiles, path)
		status.IsClean = false
	case 'D':
		status.StagedFiles = append(status.StagedFiles, path)
		status.IsClean = false
	case 'U':
		status.ConflictFiles = append(status.ConflictFiles, path)
		status.IsClean = false
	case '?':
		status.UntrackedFiles = append(status.UntrackedFiles, path)
		status.IsClean = false
	case '!':
		// Ignored files are not tracked in status.
	case ' ':
	default:
		return fmt.Errorf("unknown index status code: %c", index)
	}

	switch worktree {
	case 'M', 'D':
		status.ModifiedFiles = append(status.ModifiedFiles, path)
		status.IsClean = false
	case 'U':
		status.ConflictFiles = append(status.ConflictFiles, path)
		status.IsClean = false
	case '?', ' ':
		// Untracked is fully handled by the index column.
	default:
		if worktree != 'A' && worktree != 'R' && worktree != 'C' {
			return fmt.Errorf("unknown worktree status code: %c", worktree)
		}
	}

	return nil
}

// ParseAheadBehind parses "git rev-list --left-right --count HEAD...@{upstream}".
// Format: "AHEAD\tBEHIND". Example: "2\t3".
func ParseAheadBehind(output string) (ahead, behind int, err error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return 0, 0, nil
	}

	parts := strings.Split(output, "\t")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid ahead-behind format: %s", output)
	}

	return ParseInt(parts[0]), ParseInt(parts[1]), nil
}

// ParseBranchInfo parses the output of "git branch --show-current".
// Returns the current branch name, or empty string in detached HEAD.
func ParseBranchInfo(output string) string {
	return strings.TrimSpace(output)
}
