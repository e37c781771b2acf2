package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"postpilot/internal/auth"
	"postpilot/internal/config"
	"postpilot/internal/content"
	"postpilot/internal/engage"
	"postpilot/internal/llm"
	"postpilot/internal/notifier"
	"postpilot/internal/quality"
	"postpilot/internal/scheduler"
	"postpilot/internal/timeline"
)

// newRunCmd creates the "postpilot run" subcommand.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduling daemon",
		Long:  "Start the daemon that sweeps every minute: publishing due posts,\nrunning auto-tweet cycles, and running auto-engage cycles.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon()
		},
	}
}

func runDaemon() error {
	cfg := loadConfig()

	if cfg.LLM.Provider != config.ProviderAnthropic {
		return fmt.Errorf("unsupported llm provider: %q", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey == "" {
		path, _ := config.ConfigPath()
		return fmt.Errorf("no LLM API key configured; set llm.api_key in %s", path)
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	cookieDir, err := auth.DefaultCookieDir()
	if err != nil {
		return fmt.Errorf("resolve cookie dir: %w", err)
	}
	authManager := auth.NewManager(auth.NewCookieStore(cookieDir))

	client := timeline.New(cfg.Browser.Headless)
	sessions := timeline.NewSessions(authManager, client)

	gateway := llm.NewAnthropic(cfg.LLM.APIKey, cfg.LLM.Model)
	generator := content.NewGenerator(gateway, cfg.Content.MaxAttempts)
	filter := quality.New(gateway)

	ntf, err := notifier.NewFromConfig(cfg.Email)
	if err != nil {
		return fmt.Errorf("configure notifier: %w", err)
	}

	orchestrator := engage.New(st, sessions, generator, filter, ntf, cfg)
	sched := scheduler.New(st, sessions, generator, orchestrator, cfg)

	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	log.Println("postpilot daemon running, press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	// Let in-flight jobs drain before exiting
	<-sched.Stop().Done()
	log.Println("postpilot daemon stopped")
	return nil
}
