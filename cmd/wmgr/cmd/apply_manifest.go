// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/archmagece/wmgr/pkg/cliutil"
	"github.com/archmagece/wmgr/pkg/manifest"
)

func newApplyManifestCmd() *cobra.Command {
	var (
		force  bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "apply-manifest <file>",
		Short: "Replace the workspace manifest with a new one",
		Long: `Diff the proposed manifest against the current one and, on confirmation,
write it into the workspace. Repositories are never touched; run
'wmgr sync' afterwards to reconcile.

With both --dry-run and --force, --dry-run wins: the changes are reported
and nothing is written.
` + cliutil.QuickStartHelp(`  # Preview what would change
  wmgr apply-manifest new.yml --dry-run

  # Apply without prompting
  wmgr apply-manifest new.yml --force`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := findWorkspace()
			if err != nil {
				return err
			}

			current, err := ws.LoadManifest(manifest.DefaultOptions())
			if err != nil {
				return err
			}

			proposed, err := manifest.LoadFile(args[0], manifest.DefaultOptions())
			if err != nil {
				return err
			}
			printWarnings(proposed.Warnings)

			changes := manifest.Diff(current.Manifest, proposed.Manifest)
			out := cmd.OutOrStdout()

			if changes.IsEmpty() {
				fmt.Fprintln(out, "No changes.")
				return nil
			}

			printChanges(cmd, changes)

			if dryRun {
				fmt.Fprintln(out, "[dry-run] No changes made.")
				return nil
			}

			if !force {
				if !cliutil.IsTerminal() {
					return &cliutil.ExitError{Code: 2, Msg: "changes detected; re-run with --force to apply"}
				}
				confirmed := false
				prompt := huh.NewConfirm().
					Title("Apply these manifest changes?").
					Value(&confirmed)
				if err := prompt.Run(); err != nil {
					return fmt.Errorf("confirmation prompt failed: %w", err)
				}
				if !confirmed {
					return &cliutil.ExitError{Code: 2, Msg: "apply cancelled"}
				}
			}

			if err := manifest.Save(ws.ManifestPath, proposed.Manifest); err != nil {
				return err
			}

			fmt.Fprintf(out, "Applied manifest to %s. Run 'wmgr sync' to reconcile.\n", ws.ManifestPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Apply without confirmation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without applying")

	return cmd
}

func printChanges(cmd *cobra.Command, changes *manifest.Changes) {
	out := cmd.OutOrStdout()
	for _, repo := range changes.Added {
		fmt.Fprintf(out, "+ %s (%s)\n", repo.Dest, repo.URL)
	}
	for _, change := range changes.Modified {
		fmt.Fprintf(out, "~ %s\n", change.New.Dest)
		if change.Old.URL != change.New.URL {
			fmt.Fprintf(out, "    url: %s -> %s\n", change.Old.URL, change.New.URL)
		}
		if change.Old.Branch != change.New.Branch {
			fmt.Fprintf(out, "    branch: %s -> %s\n", change.Old.Branch, change.New.Branch)
		}
	}
	for _, repo := range changes.Removed {
		fmt.Fprintf(out, "- %s\n", repo.Dest)
	}
}

func init() {
	rootCmd.AddCommand(newApplyManifestCmd())
}
