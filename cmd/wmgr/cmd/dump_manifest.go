// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/archmagece/wmgr/pkg/cliutil"
	"github.com/archmagece/wmgr/pkg/manifest"
)

func newDumpManifestCmd() *cobra.Command {
	var (
		format  string
		outFile string
		pretty  bool
	)

	cmd := &cobra.Command{
		Use:   "dump-manifest",
		Short: "Print the processed manifest",
		Long: `Load the workspace manifest (includes expanded, groups reconciled) and
print it, to stdout or a file.
` + cliutil.QuickStartHelp(`  # Dump as YAML
  wmgr dump-manifest

  # Dump as pretty JSON to a file
  wmgr dump-manifest -f json --pretty -o manifest.json`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cliutil.ValidateFormat(format, []string{"yaml", "json"}); err != nil {
				return err
			}

			ws, err := findWorkspace()
			if err != nil {
				return err
			}

			processed, err := ws.LoadManifest(manifest.DefaultOptions())
			if err != nil {
				return err
			}
			printWarnings(processed.Warnings)

			var data []byte
			switch format {
			case "json":
				data, err = processed.Manifest.ToJSON(pretty)
			default:
				data, err = processed.Manifest.ToYAML()
			}
			if err != nil {
				return err
			}

			if outFile != "" {
				if err := manifest.WriteAtomic(outFile, data); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outFile)
				return nil
			}

			_, err = os.Stdout.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format (yaml|json)")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")

	return cmd
}

func init() {
	rootCmd.AddCommand(newDumpManifestCmd())
}
