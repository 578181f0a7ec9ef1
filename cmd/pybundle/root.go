// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for pybundle.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"pybundle-cli/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "pybundle",
		Short: "Compile a bundle of Python tools into standalone binaries",
		Long: TitleStyle.Render("pybundle") + SubtitleStyle.Render(" - versioned standalone binaries from Python scripts") + `

pybundle discovers tool entrypoints under a scripts tree, selects a
shared or pinned Python virtual environment per tool, validates each
tool's requirements against the environment's root manifest, and drives
PyInstaller to produce one versioned binary per tool. When a shared
environment cannot install a tool's requirements, the build retries in
a fresh isolated environment private to that tool.

` + SubtitleStyle.Render("Examples:") + `
  pybundle build            Build every tool into dist/
  pybundle list             Show discovered tools and their pins
  pybundle envs             Show available build environments`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .pybundle.toml at the bundle root)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(envsCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadConfig reads the run configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger builds the run logger; --verbose lowers the level to debug.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: config.AppName,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
