package main

import (
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"postpilot/internal/config"
)

// newOpenCmd creates the "postpilot open" subcommand.
func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <config|cache>",
		Short: "Open the config file or cache directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			var err error

			switch args[0] {
			case "config":
				path, err = config.ConfigPath()
			case "cache":
				path, err = config.CacheDir()
			default:
				return fmt.Errorf("unknown target: %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			return browser.OpenFile(path)
		},
	}
}
