// Package logging provides component-scoped loggers for wmgr.
// Verbosity is controlled by the --verbose flag or the WMGR_LOG_LEVEL
// environment variable (debug, info, warn, error).
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu   sync.Mutex
	root = newRoot()
)

func newRoot() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	l.SetLevel(levelFromEnv())
	return l
}

func levelFromEnv() logrus.Level {
	switch strings.ToLower(os.Getenv("WMGR_LOG_LEVEL")) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

// NewLogger returns a logger tagged with the given component name.
func NewLogger(component string) *logrus.Entry {
	return root.WithField("component", component)
}

// SetVerbose raises the level to debug when enabled. The WMGR_LOG_LEVEL
// environment variable still wins when set.
func SetVerbose(verbose bool) {
	mu.Lock()
	defer mu.Unlock()
	if os.Getenv("WMGR_LOG_LEVEL") != "" {
		return
	}
	if verbose {
		root.SetLevel(logrus.DebugLevel)
	} else {
		root.SetLevel(logrus.WarnLevel)
	}
}

// SetNoColor disables colored log output.
func SetNoColor(noColor bool) {
	mu.Lock()
	defer mu.Unlock()
	root.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    noColor,
	})
}

// SetOutput redirects log output; used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root.SetOutput(w)
}
