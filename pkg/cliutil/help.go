// Package cliutil provides small shared helpers for the CLI layer:
// output writers, format validation, and help formatting.
package cliutil

const (
	ColorCyanBold = "\033[1;36m"
	ColorReset    = "\033[0m"
)

// QuickStartHelp returns a standardized "Quick Start" help string with
// colors. It wraps the content (which should contain the examples) with
// the styled header.
func QuickStartHelp(content string) string {
	return " " + ColorCyanBold + "Quick Start:" + ColorReset + "\n" + content
}
