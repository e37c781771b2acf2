package timeline

import (
	"context"
	"fmt"

	"postpilot/internal/auth"
	"postpilot/internal/types"
)

// Sessions resolves per-agent cookie bundles and runs client calls with
// them. It is the concrete poster the orchestrator and scheduler use.
type Sessions struct {
	auth   *auth.Manager
	client *Client
}

// NewSessions creates a session-aware poster
func NewSessions(m *auth.Manager, c *Client) *Sessions {
	return &Sessions{auth: m, client: c}
}

// VerifySession authenticates the agent's stored session once
func (s *Sessions) VerifySession(ctx context.Context, agentID string) error {
	cookies, err := s.auth.Cookies(agentID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return s.client.VerifySession(ctx, cookies)
}

// FetchTimeline fetches up to max candidate posts as the agent
func (s *Sessions) FetchTimeline(ctx context.Context, agentID string, max int) ([]types.CandidateItem, error) {
	cookies, err := s.auth.Cookies(agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return s.client.FetchTimeline(ctx, cookies, max)
}

// Post publishes text as the agent, optionally as a reply
func (s *Sessions) Post(ctx context.Context, agentID, text, inReplyTo string) (types.PostReceipt, error) {
	cookies, err := s.auth.Cookies(agentID)
	if err != nil {
		return types.PostReceipt{}, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return s.client.Post(ctx, cookies, text, inReplyTo)
}
