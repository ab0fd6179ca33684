// Package cmd implements the CLI commands for wmgr.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/archmagece/wmgr/internal/logging"
	"github.com/archmagece/wmgr/pkg/cliutil"
	"github.com/archmagece/wmgr/pkg/manifest"
	"github.com/archmagece/wmgr/pkg/workspace"
)

var (
	// appVersion is set by Execute.
	appVersion string

	// Global flags
	verbose  bool
	noColor  bool
	chdirArg string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wmgr",
	Short: "Multi-repository workspace manager",
	Long: `wmgr keeps a tree of repositories in agreement with a single YAML manifest:
it clones what is missing, fast-forwards what exists, and fans commands out
across every repository.
` + cliutil.QuickStartHelp(`  # Create a manifest template and initialize the workspace
  wmgr init

  # Clone or update every declared repository
  wmgr sync

  # Show the state of every repository
  wmgr status

  # Run a command in every repository
  wmgr foreach -- git fetch`),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.SetVerbose(verbose)
		logging.SetNoColor(noColor)
		if noColor {
			color.NoColor = true
		}
		if chdirArg != "" {
			if err := os.Chdir(chdirArg); err != nil {
				return fmt.Errorf("change directory: %w", err)
			}
		}
		return nil
	},
}

// Execute runs the root command with signal-aware cancellation. An
// interrupt cancels in-flight workers and exits 130.
func Execute(version string) {
	appVersion = version
	rootCmd.Version = version
	manifest.ToolVersion = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	interrupted := ctx.Err() != nil
	stop()

	switch {
	case err == nil:
	case interrupted:
		fmt.Fprintln(os.Stderr, "interrupted")
		os.Exit(130)
	default:
		var exitErr *cliutil.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Msg != "" {
				fmt.Fprintln(os.Stderr, exitErr.Msg)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVarP(&chdirArg, "chdir", "C", "", "Run as if started in this directory")
}

// findWorkspace locates the workspace from the current directory upward.
func findWorkspace() (*workspace.Workspace, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return workspace.Find(cwd)
}

// printWarnings reports loader warnings once, to stderr.
func printWarnings(warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintln(os.Stderr, color.YellowString("Warning: %s", warning))
	}
}
