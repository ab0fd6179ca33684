// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/archmagece/wmgr/pkg/cliutil"
	"github.com/archmagece/wmgr/pkg/workspace"
)

const manifestTemplate = `# wmgr workspace manifest
repos:
  - dest: example
    url: https://github.com/example/example
    branch: main

# groups:
#   backend:
#     repos: [example]

# default_branch: main
`

func newInitCmd() *cobra.Command {
	var (
		path         string
		force        bool
		manifestName string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty manifest template and initialize the workspace",
		Long: cliutil.QuickStartHelp(`  # Initialize the current directory
  wmgr init

  # Initialize another directory with a specific manifest name
  wmgr init --path ~/work --manifest manifest.yml`),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := path
			if dir == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = cwd
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create workspace directory: %w", err)
			}

			manifestPath := filepath.Join(dir, manifestName)
			if _, err := os.Stat(manifestPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", manifestPath)
			}

			if err := os.WriteFile(manifestPath, []byte(manifestTemplate), 0o644); err != nil {
				return fmt.Errorf("write manifest template: %w", err)
			}

			ws, err := workspace.Open(dir)
			if err != nil {
				return err
			}
			if err := ws.MarkInitialized(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized workspace at %s\n", dir)
			fmt.Fprintf(cmd.OutOrStdout(), "Edit %s and run 'wmgr sync'\n", manifestPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Workspace directory (default: current directory)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing manifest")
	cmd.Flags().StringVar(&manifestName, "manifest", "wmgr.yml", "Manifest file name")

	return cmd
}

func init() {
	rootCmd.AddCommand(newInitCmd())
}
