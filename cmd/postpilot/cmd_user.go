package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"postpilot/internal/types"
)

// newUserCmd creates the "postpilot user" subcommand group.
func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var email, plan string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			user := &types.User{
				ID:    uuid.NewString(),
				Email: email,
				Plan:  plan,
			}
			if err := st.CreateUser(user); err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s, %s plan)\n", user.ID, user.Email, user.Plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "notification email address")
	cmd.Flags().StringVar(&plan, "plan", "free", "billing plan (free|pro)")
	return cmd
}
