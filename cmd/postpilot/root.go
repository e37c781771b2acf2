package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"postpilot/internal/config"
	"postpilot/internal/store"
)

// newRootCmd creates the root postpilot command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "postpilot",
		Short:         "Autonomous X posting agents",
		Long:          "postpilot runs configured agent personas that post and reply\non X on a schedule, with LLM-scored candidate selection.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newRunCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newUserCmd(),
		newAgentCmd(),
		newCycleCmd(),
		newOpenCmd(),
		newBrowserCheckCmd(),
	)

	return cmd
}

// loadConfig loads the config file, creating a default one on first run.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err == nil {
		return cfg
	}

	if os.IsNotExist(err) {
		cfg = config.Default()
		if serr := cfg.Save(); serr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save default config: %v\n", serr)
		} else {
			path, _ := config.ConfigPath()
			fmt.Printf("Created default config at: %s\n", path)
		}
		return cfg
	}

	fmt.Fprintf(os.Stderr, "Warning: could not load config: %v (using defaults)\n", err)
	return config.Default()
}

// openStore opens the sqlite store at the default database path.
func openStore() (*store.Store, error) {
	dbPath, err := config.DatabasePath()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	return store.New(dbPath)
}
