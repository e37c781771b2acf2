package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"postpilot/internal/config"
	"postpilot/internal/store"
)

// AnthropicGateway implements Gateway using Anthropic's Claude API
type AnthropicGateway struct {
	client   *anthropic.Client
	provider string // e.g. "anthropic"
	model    string
}

// NewAnthropic creates a new Anthropic gateway
func NewAnthropic(apiKey, model string) *AnthropicGateway {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicGateway{
		client:   &client,
		provider: config.ProviderAnthropic,
		model:    model,
	}
}

// Generate sends the prompt pair to Claude and returns the raw text
func (g *AnthropicGateway) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		g.cache(systemPrompt, userPrompt, "", err)
		return "", fmt.Errorf("failed to call Claude API: %w", err)
	}

	// Extract text from response
	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	g.cache(systemPrompt, userPrompt, responseText, nil)

	if responseText == "" {
		return "", fmt.Errorf("Claude returned empty response")
	}

	return responseText, nil
}

// cache writes the exchange to the debug cache; failures are only logged
func (g *AnthropicGateway) cache(system, prompt, response string, callErr error) {
	exchange := store.LLMExchange{
		Timestamp: time.Now(),
		Provider:  g.provider,
		Model:     g.model,
		System:    system,
		Prompt:    prompt,
		Response:  response,
	}
	if callErr != nil {
		exchange.Error = callErr.Error()
	}

	if _, err := store.SaveLLMExchange(exchange); err != nil {
		log.Printf("[llm] Failed to cache LLM exchange: %v", err)
	}
}
