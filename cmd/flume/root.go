package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flumehq/flume"
)

var (
	// Global flags.
	verbose  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "flume",
	Short: "A workflow composition engine",
	Long: `Flume composes three-phase nodes into pipelines, forks, and
outcome-routed graphs. Workflows can be defined in YAML and run with the
built-in node types.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, none)")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// newLogger builds the logger from flags, falling back to the
// FLUME_LOG_LEVEL environment variable.
func newLogger() flume.Logger {
	if verbose {
		return flume.NewTextLogger(flume.LevelDebug)
	}
	if logLevel != "" {
		return flume.NewTextLogger(flume.ParseLevel(logLevel))
	}
	return flume.NewTextLogger(flume.LevelFromEnv("FLUME_LOG_LEVEL"))
}
