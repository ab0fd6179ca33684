// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/archmagece/wmgr/pkg/cliutil"
	"github.com/archmagece/wmgr/pkg/engine"
	"github.com/archmagece/wmgr/pkg/manifest"
)

var (
	foreachRepoColor = color.New(color.FgCyan, color.Bold)
	foreachFailColor = color.New(color.FgRed)
)

func newForeachCmd() *cobra.Command {
	var (
		groups          []string
		parallel        bool
		jobs            int
		continueOnError bool
		timeoutSeconds  uint
		noChangeDir     bool
	)

	cmd := &cobra.Command{
		Use:   "foreach <cmd> [args...]",
		Short: "Run a command in every repository",
		Long: `Execute the same shell command in each selected repository. The
workspace and repository context is injected through TSRC_* environment
variables. Exits 0 only when every invocation returned 0.
` + cliutil.QuickStartHelp(`  # Fetch everywhere, sequentially
  wmgr foreach -- git fetch

  # Run in parallel across four workers
  wmgr foreach -p -j 4 -- git gc

  # The injected variables are available to the shell
  wmgr foreach -- 'echo $TSRC_REPO_DEST'`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := findWorkspace()
			if err != nil {
				return err
			}

			// A single argument may carry arbitrary shell syntax; multiple
			// arguments are quoted back into one command line.
			command := args[0]
			if len(args) > 1 {
				command = shellquote.Join(args...)
			}

			report, err := engine.New().Foreach(cmd.Context(), ws, engine.ForeachConfig{
				Command:         command,
				Groups:          groups,
				Parallel:        parallel,
				MaxParallel:     jobs,
				ContinueOnError: continueOnError,
				Verbose:         verbose,
				TimeoutSeconds:  timeoutSeconds,
				ChangeDir:       !noChangeDir,
				Manifest:        manifest.DefaultOptions(),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, result := range report.Results {
				foreachRepoColor.Fprintf(out, "=== %s\n", result.Dest)
				switch result.State {
				case engine.ForeachSuccess:
					fmt.Fprint(out, result.Stdout)
				case engine.ForeachSkipped:
					fmt.Fprintf(out, "skipped: %s\n", result.Reason)
				default:
					fmt.Fprint(out, result.Stdout)
					foreachFailColor.Fprintf(out, "%s: %s\n", result.State, strings.TrimSpace(result.Stderr))
				}
			}
			fmt.Fprintf(out, "%d ok, %d failed, %d skipped\n",
				report.SuccessCount, report.FailureCount+report.TimeoutCount, report.SkippedCount)

			if !report.OK() {
				return &cliutil.ExitError{Code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&groups, "group", "g", nil, "Restrict to the named group (repeatable)")
	cmd.Flags().BoolVarP(&parallel, "parallel", "p", false, "Run across repos in parallel")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Parallel workers (default: min(repos, cores))")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep going after a failure")
	cmd.Flags().UintVar(&timeoutSeconds, "timeout", 0, "Per-repo timeout in seconds")
	cmd.Flags().BoolVar(&noChangeDir, "no-change-dir", false, "Run from the workspace root instead of each repo")

	return cmd
}

func init() {
	rootCmd.AddCommand(newForeachCmd())
}
