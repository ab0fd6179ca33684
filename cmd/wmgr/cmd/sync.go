// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/archmagece/wmgr/pkg/cliutil"
	"github.com/archmagece/wmgr/pkg/engine"
	"github.com/archmagece/wmgr/pkg/manifest"
	"github.com/archmagece/wmgr/pkg/tui"
	"github.com/archmagece/wmgr/pkg/workspace"
)

func newSyncCmd() *cobra.Command {
	var (
		groups          []string
		force           bool
		noCorrectBranch bool
		jobs            int
		noRecursive     bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Clone missing repositories and fast-forward existing ones",
		Long: `Reconcile the workspace against its manifest: clone what is missing,
fetch and fast-forward what exists, then apply copy/symlink directives.
` + cliutil.QuickStartHelp(`  # Sync every repository
  wmgr sync

  # Sync one group with eight workers
  wmgr sync -g backend -j 8

  # Discard local changes while syncing
  wmgr sync --force`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := findWorkspace()
			if err != nil {
				return err
			}

			opts := engine.SyncOptions{
				Groups:          groups,
				Force:           force,
				NoCorrectBranch: noCorrectBranch,
				ParallelJobs:    jobs,
				Verbose:         verbose,
				Recursive:       !noRecursive,
				Manifest:        manifest.DefaultOptions(),
				FileOps: engine.FileOpOptions{
					OverwriteExisting: true,
					CreateBackup:      true,
					CreateParentDirs:  true,
				},
			}

			eng := engine.New()

			// A TTY gets the live progress view; otherwise plain lines.
			if cliutil.IsTerminal() && !verbose {
				return runSyncTUI(cmd, eng, ws, opts)
			}

			report, err := eng.Sync(cmd.Context(), ws, opts)
			if err != nil {
				return err
			}
			return printSyncReport(cmd, report)
		},
	}

	cmd.Flags().StringArrayVarP(&groups, "group", "g", nil, "Restrict to the named group (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "Discard local changes")
	cmd.Flags().BoolVar(&noCorrectBranch, "no-correct-branch", false, "Do not switch repos to their declared branch")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Parallel workers (default: number of cores)")
	cmd.Flags().BoolVar(&noRecursive, "no-recursive", false, "Do not descend into nested workspaces")

	return cmd
}

func runSyncTUI(cmd *cobra.Command, eng *engine.Engine, ws *workspace.Workspace, opts engine.SyncOptions) error {
	processed, err := ws.LoadManifest(opts.Manifest)
	if err != nil {
		return fmt.Errorf("manifest update failed: %w", err)
	}
	printWarnings(processed.Warnings)

	program := tea.NewProgram(tui.NewSyncModel(len(processed.Manifest.Repos)))
	opts.Progress = tui.ProgramSink{Program: program}

	var (
		report  *engine.SyncReport
		syncErr error
	)
	go func() {
		report, syncErr = eng.Sync(cmd.Context(), ws, opts)
		program.Send(tui.SyncDoneMsg{Report: report})
	}()

	if _, err := program.Run(); err != nil {
		return err
	}
	if syncErr != nil {
		return syncErr
	}
	if report != nil && !report.OK() {
		return &cliutil.ExitError{Code: 1, Msg: fmt.Sprintf("%d repositories failed", report.FailedCount)}
	}
	return nil
}

func printSyncReport(cmd *cobra.Command, report *engine.SyncReport) error {
	out := cmd.OutOrStdout()
	for _, result := range report.Results {
		if result.Error != "" {
			fmt.Fprintf(out, "%-8s %s: %s\n", result.Action, result.Dest, result.Error)
		} else {
			fmt.Fprintf(out, "%-8s %s\n", result.Action, result.Dest)
		}
	}
	for _, op := range report.FileOps {
		if op.Error != "" {
			fmt.Fprintf(out, "%s %s -> %s: %s\n", op.Type, op.Source, op.Dest, op.Error)
		}
	}
	fmt.Fprintf(out, "cloned %d, updated %d, skipped %d, failed %d\n",
		report.ClonedCount, report.UpdatedCount, report.SkippedCount, report.FailedCount)

	if !report.OK() {
		return &cliutil.ExitError{Code: 1}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(newSyncCmd())
}
