package content

import (
	"context"
	"fmt"
	"log"

	"postpilot/internal/llm"
	"postpilot/internal/types"
)

// Generator produces sanitized, validated post text through the LLM gateway.
type Generator struct {
	gateway     llm.Gateway
	maxAttempts int
}

// NewGenerator creates a generator. maxAttempts bounds the retries on
// generation or validation failure.
func NewGenerator(gateway llm.Gateway, maxAttempts int) *Generator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Generator{gateway: gateway, maxAttempts: maxAttempts}
}

// Tweet generates one original post in the agent's voice
func (g *Generator) Tweet(ctx context.Context, agent types.Agent) (string, error) {
	return g.generate(ctx, SystemPrompt(agent), TweetPrompt(agent))
}

// Reply generates one reply to a candidate item in the agent's voice
func (g *Generator) Reply(ctx context.Context, agent types.Agent, item types.CandidateItem) (string, error) {
	return g.generate(ctx, SystemPrompt(agent), ReplyPrompt(agent, item))
}

func (g *Generator) generate(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		raw, err := g.gateway.Generate(ctx, system, prompt)
		if err != nil {
			lastErr = err
			continue
		}

		clean := Sanitize(raw)
		if Validate(clean) {
			return clean, nil
		}

		log.Printf("[content] Discarding invalid output (attempt %d/%d): %.80q", attempt, g.maxAttempts, clean)
		lastErr = fmt.Errorf("output failed validation")
	}

	return "", fmt.Errorf("no valid output after %d attempts: %w", g.maxAttempts, lastErr)
}
