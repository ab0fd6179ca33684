// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archmagece/wmgr/pkg/cliutil"
	"github.com/archmagece/wmgr/pkg/manifest"
	"github.com/archmagece/wmgr/pkg/watch"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the manifest and preview changes as it is edited",
		Long: `Monitor the workspace manifest file. On every change the manifest is
re-validated and the diff against the last good version is printed.
Read-only: nothing is synced until 'wmgr sync' runs.
` + cliutil.QuickStartHelp(`  wmgr watch`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := findWorkspace()
			if err != nil {
				return err
			}

			processed, err := ws.LoadManifest(manifest.DefaultOptions())
			if err != nil {
				return err
			}
			lastGood := processed.Manifest

			watcher, err := watch.NewWatcher(watch.Options{})
			if err != nil {
				return err
			}
			defer watcher.Stop()

			if err := watcher.Start(cmd.Context(), ws.ManifestPath); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (ctrl-c to stop)\n", ws.ManifestPath)

			for {
				select {
				case <-cmd.Context().Done():
					return nil

				case event, ok := <-watcher.Events():
					if !ok {
						return nil
					}
					fmt.Fprintf(out, "\nManifest changed at %s\n", event.Timestamp.Format("15:04:05"))

					reloaded, err := ws.LoadManifest(manifest.DefaultOptions())
					if err != nil {
						fmt.Fprintf(out, "invalid manifest: %v\n", err)
						continue
					}
					printWarnings(reloaded.Warnings)

					changes := manifest.Diff(lastGood, reloaded.Manifest)
					if changes.IsEmpty() {
						fmt.Fprintln(out, "no repo changes")
					} else {
						printChanges(cmd, changes)
					}
					lastGood = reloaded.Manifest

				case err, ok := <-watcher.Errors():
					if !ok {
						return nil
					}
					fmt.Fprintf(out, "watch error: %v\n", err)
				}
			}
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(newWatchCmd())
}
