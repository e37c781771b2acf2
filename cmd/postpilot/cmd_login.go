package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"postpilot/internal/auth"
)

// newLoginCmd creates the "postpilot login" subcommand.
func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <agent-id>",
		Short: "Log an agent's X account in via a visible browser",
		Long:  "Open a browser window for a manual X login. Once the home feed\nloads, session cookies are saved for the agent.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newAuthManager()
			if err != nil {
				return err
			}

			agentID := args[0]
			if err := manager.Login(context.Background(), agentID); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Login successful, cookies saved for agent %s\n", agentID)
			return nil
		},
	}
}

// newLogoutCmd creates the "postpilot logout" subcommand.
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <agent-id>",
		Short: "Clear an agent's stored X session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newAuthManager()
			if err != nil {
				return err
			}

			agentID := args[0]
			if err := manager.Logout(agentID); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cleared session for agent %s\n", agentID)
			return nil
		},
	}
}

func newAuthManager() (*auth.Manager, error) {
	cookieDir, err := auth.DefaultCookieDir()
	if err != nil {
		return nil, fmt.Errorf("resolve cookie dir: %w", err)
	}
	return auth.NewManager(auth.NewCookieStore(cookieDir)), nil
}
