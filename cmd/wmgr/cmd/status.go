// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archmagece/wmgr/pkg/cliutil"
	"github.com/archmagece/wmgr/pkg/engine"
	"github.com/archmagece/wmgr/pkg/manifest"
	"github.com/archmagece/wmgr/pkg/tui"
)

func newStatusCmd() *cobra.Command {
	var (
		groups     []string
		showBranch bool
		compact    bool
		format     string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of every repository",
		Long: `Collect per-repository state: clean, dirty, missing, wrong-branch,
out-of-sync, or error. Exits 0 only when every repository is clean.
` + cliutil.QuickStartHelp(`  # Status of the whole workspace
  wmgr status

  # Compact one-line-per-repo output with branches
  wmgr status -c -b

  # Machine-readable output
  wmgr status -o json`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cliutil.ValidateFormat(format, cliutil.CoreFormats); err != nil {
				return err
			}

			ws, err := findWorkspace()
			if err != nil {
				return err
			}

			report, err := engine.New().Status(cmd.Context(), ws, engine.StatusOptions{
				Groups:   groups,
				Manifest: manifest.DefaultOptions(),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				if err := cliutil.WriteJSON(out, report, true); err != nil {
					return err
				}
			case "yaml":
				if err := cliutil.WriteYAML(out, report); err != nil {
					return err
				}
			default:
				fmt.Fprint(out, tui.RenderStatusTable(report, showBranch, compact))
			}

			if !report.AllClean() {
				return &cliutil.ExitError{Code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&groups, "group", "g", nil, "Restrict to the named group (repeatable)")
	cmd.Flags().BoolVarP(&showBranch, "branch", "b", false, "Show the current branch per repo")
	cmd.Flags().BoolVarP(&compact, "compact", "c", false, "Hide per-repo detail")
	cmd.Flags().StringVarP(&format, "output", "o", "text", "Output format (text|json|yaml)")

	return cmd
}

func init() {
	rootCmd.AddCommand(newStatusCmd())
}
