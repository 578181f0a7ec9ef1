// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pybundle-cli/internal/build"
	"pybundle-cli/internal/pyenv"
	"pybundle-cli/internal/runner"
)

var (
	buildScriptsDir     string
	buildOutputDir      string
	buildScratchDir     string
	buildIncludePrivate bool

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build every discovered tool into a standalone binary",
		Long: `Build discovers the tool entrypoints under the scripts directory,
validates their requirements against the matching root manifest, and
compiles each tool with PyInstaller into the output directory.

The run fails before producing any binary if a tool's requirements are
not a subset of its environment's root manifest, or if a pinned root
manifest is missing.`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVar(&buildScriptsDir, "scripts", "", "scripts directory (overrides config)")
	buildCmd.Flags().StringVar(&buildOutputDir, "output", "", "output directory for binaries (overrides config)")
	buildCmd.Flags().StringVar(&buildScratchDir, "scratch", "", "scratch directory for build state (overrides config)")
	buildCmd.Flags().BoolVar(&buildIncludePrivate, "include-private", false, "include underscore-prefixed tools")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return &ExitError{Code: 2, Err: fmt.Errorf("loading configuration: %w", err)}
	}
	if cmd.Flags().Changed("scripts") {
		cfg.ScriptsDir = buildScriptsDir
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = buildOutputDir
	}
	if cmd.Flags().Changed("scratch") {
		cfg.ScratchDir = buildScratchDir
	}
	if cmd.Flags().Changed("include-private") {
		cfg.IncludePrivate = buildIncludePrivate
	}

	logger := newLogger()
	run := runner.New()

	catalog, err := pyenv.NewCatalog(cmd.Context(), cfg.RootDir, cfg.ScratchPath(), run, logger)
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("resolving build environments: %w", err)}
	}

	orch, err := build.New(cfg, catalog, run, logger)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	if err := orch.Run(cmd.Context()); err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Println(SuccessStyle.Render("✓") + " bundle built: " + ToolStyle.Render(cfg.OutputPath()))
	return nil
}
