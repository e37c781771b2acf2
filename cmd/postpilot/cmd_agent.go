package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"postpilot/internal/types"
)

// newAgentCmd creates the "postpilot agent" subcommand group.
func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage agents",
	}
	cmd.AddCommand(
		newAgentAddCmd(),
		newAgentListCmd(),
		newAgentStartCmd(),
		newAgentStopCmd(),
	)
	return cmd
}

func newAgentAddCmd() *cobra.Command {
	var (
		userID, name, handle, goal string
		tone, voice, language      string
		topics                     []string
		tweetEvery, engageEvery    float64
		tweetCount, maxReplies     int
		strictness                 int
		noQualityFilter            bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an agent persona",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if _, err := st.GetUser(userID); err != nil {
				return fmt.Errorf("load user %s: %w", userID, err)
			}

			agent := &types.Agent{
				ID:       uuid.NewString(),
				UserID:   userID,
				Name:     name,
				Handle:   handle,
				Goal:     goal,
				Language: language,
				Status:   types.AgentStopped,
				Brand: types.BrandStyle{
					Tone:   tone,
					Voice:  voice,
					Topics: topics,
				},
				AutoTweet: types.AutoTweetConfig{
					Enabled:        tweetEvery > 0,
					FrequencyHours: tweetEvery,
					Count:          tweetCount,
				},
				AutoEngage: types.AutoEngageConfig{
					Enabled:        engageEvery > 0,
					FrequencyHours: engageEvery,
					MaxReplies:     maxReplies,
					Strictness:     strictness,
					QualityFilter:  !noQualityFilter,
				},
				CreatedAt: time.Now(),
			}
			if err := st.CreateAgent(agent); err != nil {
				return fmt.Errorf("create agent: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created agent %s (@%s)\n", agent.ID, agent.Handle)
			fmt.Fprintf(cmd.OutOrStdout(), "Next: postpilot login %s, then postpilot agent start %s\n", agent.ID, agent.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owning user id")
	cmd.Flags().StringVar(&name, "name", "", "agent display name")
	cmd.Flags().StringVar(&handle, "handle", "", "the X handle the agent posts as")
	cmd.Flags().StringVar(&goal, "goal", "", "what the agent is trying to achieve")
	cmd.Flags().StringVar(&tone, "tone", "friendly", "brand tone")
	cmd.Flags().StringVar(&voice, "voice", "", "brand voice")
	cmd.Flags().StringSliceVar(&topics, "topics", nil, "topics the agent posts about")
	cmd.Flags().StringVar(&language, "language", "English", "posting language")
	cmd.Flags().Float64Var(&tweetEvery, "tweet-every", 0, "auto-tweet interval in hours (0 disables)")
	cmd.Flags().IntVar(&tweetCount, "tweet-count", 1, "posts generated per auto-tweet cycle")
	cmd.Flags().Float64Var(&engageEvery, "engage-every", 0, "auto-engage interval in hours (0 disables)")
	cmd.Flags().IntVar(&maxReplies, "max-replies", 3, "max replies per engage cycle")
	cmd.Flags().IntVar(&strictness, "strictness", 3, "quality strictness, 0 (lenient) to 5 (strict)")
	cmd.Flags().BoolVar(&noQualityFilter, "no-quality-filter", false, "skip LLM scoring, use keyword filter only")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("handle")
	return cmd
}

func newAgentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			agents, err := st.ListAgents()
			if err != nil {
				return fmt.Errorf("list agents: %w", err)
			}

			if len(agents) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No agents configured")
				return nil
			}
			for _, a := range agents {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  @%-20s %-8s tweet=%s engage=%s\n",
					a.ID, a.Handle, a.Status, describeTweet(a.AutoTweet), describeEngage(a.AutoEngage))
			}
			return nil
		},
	}
}

func describeTweet(c types.AutoTweetConfig) string {
	if !c.Enabled {
		return "off"
	}
	return fmt.Sprintf("%gh x%d", c.FrequencyHours, c.Count)
}

func describeEngage(c types.AutoEngageConfig) string {
	if !c.Enabled {
		return "off"
	}
	return fmt.Sprintf("%gh max%d", c.FrequencyHours, c.MaxReplies)
}

func newAgentStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <agent-id>",
		Short: "Mark an agent running so the daemon schedules it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setAgentStatus(cmd, args[0], types.AgentRunning)
		},
	}
}

func newAgentStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <agent-id>",
		Short: "Stop scheduling an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setAgentStatus(cmd, args[0], types.AgentStopped)
		},
	}
}

func setAgentStatus(cmd *cobra.Command, agentID string, status types.AgentStatus) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := st.GetAgent(agentID); err != nil {
		return fmt.Errorf("load agent %s: %w", agentID, err)
	}
	if err := st.SetAgentStatus(agentID, status); err != nil {
		return fmt.Errorf("update agent %s: %w", agentID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Agent %s is now %s\n", agentID, status)
	return nil
}
