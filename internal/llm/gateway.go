// Package llm provides the gateway to hosted language models. A gateway call
// is a single request/response; retry and fallback decisions belong to the
// caller.
package llm

import "context"

// Gateway sends a system+user prompt pair to a hosted model and returns the
// raw text. Failures come back as errors; a Gateway must never panic past
// this boundary.
type Gateway interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
