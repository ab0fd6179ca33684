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

func newAuditCmd() *cobra.Command {
	var (
		groups          []string
		parallel        bool
		jobs            int
		continueOnVulns bool
		auditor         string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run the dependency auditor in every repository",
		Long: `Shell out to an external auditor per repository and aggregate its JSON
findings. Exits 0 unless a critical or high finding exists.
` + cliutil.QuickStartHelp(`  # Audit the whole workspace
  wmgr audit

  # Audit one group in parallel, tolerating findings
  wmgr audit -g backend -p --continue-on-vulnerabilities`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := findWorkspace()
			if err != nil {
				return err
			}

			report, err := engine.New().Audit(cmd.Context(), ws, engine.AuditOptions{
				Groups:         groups,
				Parallel:       parallel,
				MaxParallel:    jobs,
				AuditorCommand: auditor,
				Manifest:       manifest.DefaultOptions(),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, result := range report.Results {
				switch {
				case result.Error != "":
					fmt.Fprintf(out, "%s: audit failed: %s\n", result.Dest, result.Error)
				case !result.Audited:
					fmt.Fprintf(out, "%s: skipped\n", result.Dest)
				case len(result.Findings) == 0:
					fmt.Fprintf(out, "%s: no findings\n", result.Dest)
				default:
					fmt.Fprintf(out, "%s: %d findings\n", result.Dest, len(result.Findings))
					for _, finding := range result.Findings {
						fmt.Fprintf(out, "  %s %s (%s)\n", finding.ID, finding.Package, finding.Severity)
					}
				}
			}
			fmt.Fprintf(out, "%d audited, %d vulnerable, %d failed, %d skipped\n",
				report.AuditedCount, report.VulnerableCount, report.FailedCount, report.SkippedCount)

			if report.HasCriticalOrHigh() && !continueOnVulns {
				return &cliutil.ExitError{Code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&groups, "group", "g", nil, "Restrict to the named group (repeatable)")
	cmd.Flags().BoolVarP(&parallel, "parallel", "p", false, "Run across repos in parallel")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Parallel workers (default: min(repos, cores))")
	cmd.Flags().BoolVar(&continueOnVulns, "continue-on-vulnerabilities", false, "Exit 0 even with critical/high findings")
	cmd.Flags().StringVar(&auditor, "auditor", "", "Auditor command line (default: "+engine.DefaultAuditorCommand+")")

	return cmd
}

func init() {
	rootCmd.AddCommand(newAuditCmd())
}
