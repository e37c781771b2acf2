package content

import (
	"fmt"
	"strings"

	"postpilot/internal/types"
)

// SystemPrompt constructs the persona system prompt for an agent
func SystemPrompt(agent types.Agent) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are %s (@%s), an account posting on X.\n\n", agent.Name, agent.Handle))

	sb.WriteString("## Persona\n")
	if agent.Goal != "" {
		sb.WriteString(fmt.Sprintf("Goal: %s\n", agent.Goal))
	}
	if agent.Brand.Tone != "" {
		sb.WriteString(fmt.Sprintf("Tone: %s\n", agent.Brand.Tone))
	}
	if agent.Brand.Voice != "" {
		sb.WriteString(fmt.Sprintf("Voice: %s\n", agent.Brand.Voice))
	}
	if len(agent.Brand.Topics) > 0 {
		sb.WriteString(fmt.Sprintf("Topics: %s\n", strings.Join(agent.Brand.Topics, ", ")))
	}
	if agent.Language != "" {
		sb.WriteString(fmt.Sprintf("Language: %s\n", agent.Language))
	}

	sb.WriteString("\n## Rules\n")
	sb.WriteString(fmt.Sprintf("- Stay under %d characters\n", SoftLengthLimit))
	sb.WriteString("- One sentence, lowercase-casual is fine\n")
	sb.WriteString("- No hashtags, no quotation marks, no commas, no semicolons\n")
	sb.WriteString("- No trailing period\n")
	sb.WriteString("- Output the post text only, nothing else\n")

	return sb.String()
}

// TweetPrompt constructs the user prompt for an original post
func TweetPrompt(agent types.Agent) string {
	var sb strings.Builder

	sb.WriteString("Write one original post for this account.\n")
	if len(agent.Brand.Topics) > 0 {
		sb.WriteString(fmt.Sprintf("Pick an angle on one of: %s.\n", strings.Join(agent.Brand.Topics, ", ")))
	}
	sb.WriteString("Make it feel spontaneous, not promotional.\n")

	return sb.String()
}

// ReplyPrompt constructs the user prompt for replying to a timeline post
func ReplyPrompt(agent types.Agent, item types.CandidateItem) string {
	var sb strings.Builder

	sb.WriteString("Write one reply to this post:\n\n")
	sb.WriteString(fmt.Sprintf("Author: @%s (%s)\n", item.AuthorHandle, item.AuthorName))
	sb.WriteString(fmt.Sprintf("Post: %s\n", item.Text))
	sb.WriteString(fmt.Sprintf("Engagement: %d likes, %d reposts, %d replies\n\n", item.Likes, item.Retweets, item.Replies))
	sb.WriteString("Add something to the conversation. Do not restate the post.\n")

	return sb.String()
}
