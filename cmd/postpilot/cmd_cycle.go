package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"postpilot/internal/auth"
	"postpilot/internal/content"
	"postpilot/internal/engage"
	"postpilot/internal/llm"
	"postpilot/internal/notifier"
	"postpilot/internal/quality"
	"postpilot/internal/timeline"
)

// newCycleCmd creates the "postpilot cycle" subcommand.
func newCycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle <agent-id>",
		Short: "Run one engagement cycle for an agent immediately",
		Long:  "Execute a single fetch, filter, generate, post cycle outside the\nschedule. The agent's auto-engage clock advances as usual.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			cookieDir, err := auth.DefaultCookieDir()
			if err != nil {
				return fmt.Errorf("resolve cookie dir: %w", err)
			}
			manager := auth.NewManager(auth.NewCookieStore(cookieDir))
			sessions := timeline.NewSessions(manager, timeline.New(cfg.Browser.Headless))

			gateway := llm.NewAnthropic(cfg.LLM.APIKey, cfg.LLM.Model)
			generator := content.NewGenerator(gateway, cfg.Content.MaxAttempts)

			ntf, err := notifier.NewFromConfig(cfg.Email)
			if err != nil {
				return fmt.Errorf("configure notifier: %w", err)
			}

			orchestrator := engage.New(st, sessions, generator, quality.New(gateway), ntf, cfg)

			stats, err := orchestrator.RunCycle(context.Background(), args[0])
			fmt.Fprintf(cmd.OutOrStdout(),
				"Cycle complete: fetched=%d filtered=%d generated=%d posted=%d failed=%d\n",
				stats.Fetched, stats.Filtered, stats.Generated, stats.Posted, stats.Failed)
			return err
		},
	}
}
