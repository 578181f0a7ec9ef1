// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pybundle-cli/internal/pyenv"
	"pybundle-cli/internal/runner"
)

var envsCmd = &cobra.Command{
	Use:   "envs",
	Short: "Show the shared build environments available at the bundle root",
	Long: `Envs lists the shared virtual environments found at the bundle root and
marks the one a tool without an interpreter pin would build against.`,
	Args: cobra.NoArgs,
	RunE: runEnvs,
}

func runEnvs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return &ExitError{Code: 2, Err: fmt.Errorf("loading configuration: %w", err)}
	}

	logger := newLogger()
	catalog, err := pyenv.NewCatalog(cmd.Context(), cfg.RootDir, cfg.ScratchPath(), runner.New(), logger)
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("resolving build environments: %w", err)}
	}

	def := catalog.Default()
	specs := catalog.Specs()

	fmt.Println(TitleStyle.Render("Environments"))
	if len(specs) == 0 {
		fmt.Println("  " + ToolStyle.Render(def.Python) + SubtitleStyle.Render(" ["+def.Kind.String()+"]") + SuccessStyle.Render(" (default)"))
		return nil
	}
	for _, spec := range specs {
		env, err := catalog.Select(cmd.Context(), spec)
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		line := "  " + ToolStyle.Render(spec) + " " + env.Dir
		if def != nil && env.Key() == def.Key() {
			line += SuccessStyle.Render(" (default)")
		}
		fmt.Println(line)
	}
	return nil
}
