// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pybundle-cli/internal/discovery"
)

var (
	listIncludePrivate bool

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the tools discovered under the scripts directory",
		Long: `List shows every tool entrypoint that a build would compile, with its
layout, interpreter pin and version override where present.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
)

func init() {
	listCmd.Flags().BoolVar(&listIncludePrivate, "include-private", false, "include underscore-prefixed tools")
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return &ExitError{Code: 2, Err: fmt.Errorf("loading configuration: %w", err)}
	}
	includePrivate := cfg.IncludePrivate
	if cmd.Flags().Changed("include-private") {
		includePrivate = listIncludePrivate
	}

	tools, err := discovery.Discover(cfg.ScriptsPath(), discovery.Options{IncludePrivate: includePrivate})
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	if len(tools) == 0 {
		fmt.Println(WarningStyle.Render("no tools found in " + cfg.ScriptsPath()))
		return nil
	}

	fmt.Println(TitleStyle.Render("Tools") + SubtitleStyle.Render(fmt.Sprintf(" (%d)", len(tools))))
	for _, ep := range tools {
		line := "  " + ToolStyle.Render(ep.Name) + SubtitleStyle.Render(" ["+ep.Layout.String()+"]")
		if ep.Pin != "" {
			line += " python " + ep.Pin
		}
		if ep.VersionOverride != "" {
			line += " v" + ep.VersionOverride
		}
		fmt.Println(line)
	}
	return nil
}
