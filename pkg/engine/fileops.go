// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/archmagece/wmgr/internal/validate"
	"github.com/archmagece/wmgr/pkg/manifest"
	"github.com/archmagece/wmgr/pkg/workspace"
)

// FileOpOptions control the post-sync file-operations processor.
type FileOpOptions struct {
	// OverwriteExisting allows copy destinations to be replaced.
	OverwriteExisting bool

	// CreateBackup copies an existing destination aside before replacing.
	CreateBackup bool

	// CreateParentDirs creates missing parent directories.
	CreateParentDirs bool

	// MaxBackups bounds retained backups per destination; zero means 5.
	MaxBackups int
}

// FileOpResult is the outcome of one copy or symlink directive.
// Directives are independent; one failure never cancels the others.
type FileOpResult struct {
	Type          string `json:"type"`
	Source        string `json:"source"`
	Dest          string `json:"dest"`
	Success       bool   `json:"success"`
	BackupCreated bool   `json:"backup_created,omitempty"`
	Error         string `json:"error,omitempty"`
}

const backupTimeFormat = "20060102T150405Z"

// ProcessFileOps executes the copy and symlink directives of the given
// repos in manifest order.
func (e *Engine) ProcessFileOps(ws *workspace.Workspace, repos []manifest.Repo, opts FileOpOptions) []FileOpResult {
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 5
	}

	var results []FileOpResult
	for _, repo := range repos {
		for _, cp := range repo.Copy {
			results = append(results, e.processCopy(ws, repo, cp, opts))
		}
		for _, link := range repo.Symlink {
			results = append(results, e.processSymlink(ws, link, opts))
		}
	}
	return results
}

func (e *Engine) processCopy(ws *workspace.Workspace, repo manifest.Repo, cp manifest.CopyDirective, opts FileOpOptions) FileOpResult {
	result := FileOpResult{Type: "copy", Source: cp.File, Dest: cp.Dest}

	// Traversal is rejected before any I/O, even though the loader
	// validated the manifest already.
	if _, err := validate.ParseFilePath(cp.File, true); err != nil {
		result.Error = err.Error()
		return result
	}
	if _, err := validate.ParseFilePath(cp.Dest, true); err != nil {
		result.Error = err.Error()
		return result
	}

	src := filepath.Join(ws.RepoPath(repo.Dest), filepath.FromSlash(cp.File))
	dst := filepath.Join(ws.Root, filepath.FromSlash(cp.Dest))

	if _, err := os.Stat(dst); err == nil {
		if !opts.OverwriteExisting {
			result.Error = "Destination exists and overwrite is disabled"
			return result
		}
		if opts.CreateBackup {
			if err := backupFile(dst, opts.MaxBackups); err != nil {
				result.Error = fmt.Sprintf("backup failed: %v", err)
				return result
			}
			result.BackupCreated = true
		}
	}

	if opts.CreateParentDirs {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			result.Error = fmt.Sprintf("create parent directory: %v", err)
			return result
		}
	}

	if err := copyFile(src, dst); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	return result
}

func (e *Engine) processSymlink(ws *workspace.Workspace, link manifest.SymlinkDirective, opts FileOpOptions) FileOpResult {
	result := FileOpResult{Type: "symlink", Source: link.Source, Dest: link.Target}

	if _, err := validate.ParseFilePath(link.Source, true); err != nil {
		result.Error = err.Error()
		return result
	}

	linkPath := filepath.Join(ws.Root, filepath.FromSlash(link.Source))

	// An existing symlink is replaced; anything else stays untouched.
	if fi, err := os.Lstat(linkPath); err == nil {
		if fi.Mode()&os.ModeSymlink == 0 {
			result.Error = fmt.Sprintf("%s exists and is not a symlink", link.Source)
			return result
		}
		if err := os.Remove(linkPath); err != nil {
			result.Error = fmt.Sprintf("remove existing symlink: %v", err)
			return result
		}
	}

	if opts.CreateParentDirs {
		if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
			result.Error = fmt.Sprintf("create parent directory: %v", err)
			return result
		}
	}

	if err := os.Symlink(link.Target, linkPath); err != nil {
		// Windows without SeCreateSymbolicLink lands here; the directive
		// fails, the sync does not.
		result.Error = err.Error()
		return result
	}

	result.Success = true
	return result
}

// backupFile copies dst aside as <dst>.bak_<UTC-timestamp> and prunes
// backups beyond maxBackups, oldest first.
func backupFile(dst string, maxBackups int) error {
	backup := fmt.Sprintf("%s.bak_%s", dst, time.Now().UTC().Format(backupTimeFormat))
	if err := copyFile(dst, backup); err != nil {
		return err
	}

	matches, err := filepath.Glob(dst + ".bak_*")
	if err != nil {
		return nil
	}
	if len(matches) <= maxBackups {
		return nil
	}

	// Timestamp suffixes sort chronologically.
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-maxBackups] {
		os.Remove(old)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}
