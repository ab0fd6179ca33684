// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archmagece/wmgr/pkg/cliutil"
	"github.com/archmagece/wmgr/pkg/engine"
	"github.com/archmagece/wmgr/pkg/manifest"
)

func newLogCmd() *cobra.Command {
	var (
		groups   []string
		oneline  bool
		maxCount int
		since    string
		until    string
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show git history for every repository",
		Long: cliutil.QuickStartHelp(`  # Last five commits per repo, one line each
  wmgr log --oneline -n 5

  # History for one group since a date
  wmgr log -g backend --since 2026-01-01`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := findWorkspace()
			if err != nil {
				return err
			}

			logs, err := engine.New().Log(cmd.Context(), ws, engine.LogOptions{
				Groups:   groups,
				Oneline:  oneline,
				MaxCount: maxCount,
				Since:    since,
				Until:    until,
				Manifest: manifest.DefaultOptions(),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, entry := range logs {
				fmt.Fprintf(out, "=== %s\n", entry.Dest)
				switch {
				case entry.Skipped != "":
					fmt.Fprintf(out, "skipped: %s\n", entry.Skipped)
				case entry.Error != "":
					fmt.Fprintf(out, "error: %s\n", entry.Error)
				default:
					fmt.Fprint(out, entry.Output)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&groups, "group", "g", nil, "Restrict to the named group (repeatable)")
	cmd.Flags().BoolVar(&oneline, "oneline", false, "One line per commit")
	cmd.Flags().IntVarP(&maxCount, "max-count", "n", 0, "Maximum commits per repo")
	cmd.Flags().StringVar(&since, "since", "", "Show commits after this date")
	cmd.Flags().StringVar(&until, "until", "", "Show commits before this date")

	return cmd
}

func init() {
	rootCmd.AddCommand(newLogCmd())
}
