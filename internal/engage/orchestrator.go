// Package engage runs one auto-engagement cycle per agent: fetch timeline
// candidates, filter, generate replies, and post them under quota.
package engage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"postpilot/internal/config"
	"postpilot/internal/quality"
	"postpilot/internal/timeline"
	"postpilot/internal/types"
)

// Store is the persistence surface a cycle needs
type Store interface {
	GetAgent(id string) (*types.Agent, error)
	GetUser(id string) (*types.User, error)
	ActiveReplySourceIDs(agentID string) (map[string]bool, error)
	CreateReply(r *types.Reply) (bool, error)
	MarkReplyPosted(id, externalID string, postedAt time.Time) error
	SetReplyStatus(id string, status types.ReplyStatus) error
	Usage(userID, period string) (types.Usage, error)
	IncrementReplies(userID, period string) error
	IncrementGenerations(userID, period string) error
	SetLastAutoEngage(agentID string, t time.Time) error
}

// Poster is the authenticated posting session surface
type Poster interface {
	VerifySession(ctx context.Context, agentID string) error
	FetchTimeline(ctx context.Context, agentID string, max int) ([]types.CandidateItem, error)
	Post(ctx context.Context, agentID, text, inReplyTo string) (types.PostReceipt, error)
}

// Generator produces reply text in the agent's voice
type Generator interface {
	Reply(ctx context.Context, agent types.Agent, item types.CandidateItem) (string, error)
}

// Scorer is the LLM quality filter surface
type Scorer interface {
	Score(ctx context.Context, candidates []types.CandidateItem, agent types.Agent, cfg quality.Config, maxAccept int) quality.Result
}

// Notifier delivers side-channel notifications to the agent's owner
type Notifier interface {
	Notify(user types.User, subject, body string) error
}

// CycleStats reports what one cycle did. Stats are preserved on every
// failure path.
type CycleStats struct {
	Fetched   int
	Filtered  int
	Generated int
	Posted    int
	Failed    int
}

// Orchestrator runs engagement cycles
type Orchestrator struct {
	store    Store
	poster   Poster
	gen      Generator
	filter   Scorer
	notifier Notifier
	cfg      *config.Config

	now   func() time.Time
	sleep func(time.Duration)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an orchestrator
func New(store Store, poster Poster, gen Generator, filter Scorer, notifier Notifier, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		store:    store,
		poster:   poster,
		gen:      gen,
		filter:   filter,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		sleep:    time.Sleep,
		locks:    make(map[string]*sync.Mutex),
	}
}

// agentLock returns the mutex serializing cycles for one agent. The
// scheduler runs agents sequentially, but a manually triggered cycle may
// race the daemon.
func (o *Orchestrator) agentLock(agentID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[agentID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[agentID] = l
	}
	return l
}

// RunCycle executes one engagement cycle for the agent. The agent's
// auto-engage clock always advances, even on total failure; a detected
// provider soft-block pushes it further into the future as a cooldown.
func (o *Orchestrator) RunCycle(ctx context.Context, agentID string) (CycleStats, error) {
	l := o.agentLock(agentID)
	l.Lock()
	defer l.Unlock()

	var stats CycleStats

	agent, err := o.store.GetAgent(agentID)
	if err != nil {
		return stats, fmt.Errorf("load agent: %w", err)
	}
	user, err := o.store.GetUser(agent.UserID)
	if err != nil {
		return stats, fmt.Errorf("load user: %w", err)
	}

	now := o.now()
	cooldown := time.Duration(0)
	defer func() {
		// Advance the clock unconditionally so the scheduler cannot
		// immediately re-trigger this agent.
		if err := o.store.SetLastAutoEngage(agent.ID, now.Add(cooldown)); err != nil {
			log.Printf("[engage] Failed to advance clock for agent %s: %v", agent.ID, err)
		}
	}()

	// Step 1: fetch candidates
	fetchMax := agent.AutoEngage.MaxReplies
	if fetchMax <= 0 || fetchMax > 10 {
		fetchMax = 10
	}
	items, err := o.poster.FetchTimeline(ctx, agent.ID, fetchMax)
	if err != nil {
		classified, cd := o.classifySessionError(*user, *agent, err)
		cooldown = cd
		return stats, fmt.Errorf("fetch timeline: %w", classified)
	}
	stats.Fetched = len(items)

	// Step 2: basic filter
	seen, err := o.store.ActiveReplySourceIDs(agent.ID)
	if err != nil {
		return stats, fmt.Errorf("load replied set: %w", err)
	}
	eligible := FilterEligible(*agent, items, seen)
	stats.Filtered = len(eligible)

	// Step 3: quality filter
	candidates, scoreByID := o.selectCandidates(ctx, *agent, eligible)

	// Step 4: generate
	type draft struct {
		item types.CandidateItem
		text string
	}
	var drafts []draft
	period := types.Period(now)
	for i, item := range candidates {
		if i > 0 {
			o.sleep(o.cfg.GenerationDelay())
		}
		text, err := o.gen.Reply(ctx, *agent, item)
		if err != nil {
			log.Printf("[engage] Skipping candidate %s: %v", item.ID, err)
			continue
		}
		if err := o.store.IncrementGenerations(user.ID, period); err != nil {
			log.Printf("[engage] Failed to count generation for user %s: %v", user.ID, err)
		}
		drafts = append(drafts, draft{item: item, text: text})
	}
	stats.Generated = len(drafts)
	if len(drafts) == 0 {
		if len(candidates) > 0 {
			return stats, ErrGenerationFailed
		}
		return stats, nil
	}

	// Step 5: quota check
	usage, err := o.store.Usage(user.ID, period)
	if err != nil {
		return stats, fmt.Errorf("load usage: %w", err)
	}
	remaining := o.cfg.PlanFor(user.Plan).MonthlyReplies - usage.RepliesUsed
	if remaining <= 0 {
		return stats, ErrQuotaExceeded
	}
	if len(drafts) > remaining {
		log.Printf("[engage] Quota allows %d of %d replies for user %s", remaining, len(drafts), user.ID)
		drafts = drafts[:remaining]
	}

	// Step 6: session establishment
	if err := o.poster.VerifySession(ctx, agent.ID); err != nil {
		classified, cd := o.classifySessionError(*user, *agent, err)
		cooldown = cd
		return stats, fmt.Errorf("verify session: %w", classified)
	}

	// Step 7: post loop
	for i, d := range drafts {
		if i > 0 {
			o.sleep(o.cfg.PostDelay())
		}

		reply := &types.Reply{
			ID:           uuid.NewString(),
			AgentID:      agent.ID,
			SourceID:     d.item.ID,
			SourceAuthor: d.item.AuthorHandle,
			SourceText:   d.item.Text,
			Text:         d.text,
			Status:       types.ReplyPosting,
			Score:        scoreByID[d.item.ID],
			CreatedAt:    o.now(),
		}

		created, err := o.store.CreateReply(reply)
		if err != nil {
			log.Printf("[engage] Failed to record reply for %s: %v", d.item.ID, err)
			stats.Failed++
			continue
		}
		if !created {
			// Another cycle already handled this source item
			log.Printf("[engage] Reply for %s already exists, skipping", d.item.ID)
			continue
		}

		receipt, err := o.poster.Post(ctx, agent.ID, d.text, d.item.ID)
		if err != nil {
			if uerr := o.store.SetReplyStatus(reply.ID, types.ReplyFailed); uerr != nil {
				log.Printf("[engage] Failed to mark reply %s failed: %v", reply.ID, uerr)
			}
			stats.Failed++
			if errors.Is(err, timeline.ErrBlocked) {
				classified, cd := o.classifySessionError(*user, *agent, err)
				cooldown = cd
				return stats, fmt.Errorf("post: %w", classified)
			}
			log.Printf("[engage] Post failed for %s: %v", d.item.ID, err)
			continue
		}

		if err := o.store.MarkReplyPosted(reply.ID, receipt.ExternalID, receipt.PostedAt); err != nil {
			log.Printf("[engage] Failed to mark reply %s posted: %v", reply.ID, err)
		}
		if err := o.store.IncrementReplies(user.ID, period); err != nil {
			log.Printf("[engage] Failed to count reply for user %s: %v", user.ID, err)
		}
		stats.Posted++
	}

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d posts failed: %w", stats.Failed, len(drafts), ErrPostFailed)
	}
	return stats, nil
}

// selectCandidates applies the LLM quality filter, or the keyword fallback
// when the agent has it disabled. Returns the candidates to reply to, best
// first, plus their scores.
func (o *Orchestrator) selectCandidates(ctx context.Context, agent types.Agent, eligible []types.CandidateItem) ([]types.CandidateItem, map[string]int) {
	maxReplies := agent.AutoEngage.MaxReplies
	if maxReplies <= 0 {
		maxReplies = len(eligible)
	}

	scoreByID := make(map[string]int)

	if !agent.AutoEngage.QualityFilter {
		accepted := quality.Fallback(eligible, quality.FallbackConfig{
			KeywordBlacklist: o.cfg.Engage.KeywordBlacklist,
		})
		if len(accepted) > maxReplies {
			accepted = accepted[:maxReplies]
		}
		return accepted, scoreByID
	}

	res := o.filter.Score(ctx, eligible, agent, quality.Config{
		MinScore:          minScoreFor(agent),
		CategoryBlacklist: o.cfg.Engage.CategoryBlacklist,
		BatchSize:         o.cfg.LLM.BatchSize,
		BatchDelay:        o.cfg.BatchDelay(),
	}, maxReplies)

	for _, sc := range res.Scores {
		scoreByID[sc.ItemID] = sc.Score
	}
	return res.Accepted, scoreByID
}

// classifySessionError maps a session failure onto the cycle error taxonomy
// and fires the matching owner notification. A soft-block also returns the
// extended cooldown to apply.
func (o *Orchestrator) classifySessionError(user types.User, agent types.Agent, err error) (error, time.Duration) {
	switch {
	case errors.Is(err, timeline.ErrBlocked):
		o.notify(user, "Agent paused: account temporarily blocked",
			fmt.Sprintf("X has temporarily blocked @%s. The agent will retry after a cooldown.", agent.Handle))
		return ErrProviderBlocked, o.cfg.BlockCooldown()
	case errors.Is(err, timeline.ErrSessionExpired):
		o.notify(user, "Agent needs a new login",
			fmt.Sprintf("The session for @%s has expired. Log the agent in again to resume posting.", agent.Handle))
		return ErrAuthExpired, 0
	case errors.Is(err, timeline.ErrNoSession):
		return ErrNoSession, 0
	default:
		return err, 0
	}
}

func (o *Orchestrator) notify(user types.User, subject, body string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(user, subject, body); err != nil {
		log.Printf("[engage] Failed to notify user %s: %v", user.ID, err)
	}
}

// minScoreFor resolves the agent's quality threshold: an explicit min-score
// wins, otherwise it derives from strictness.
func minScoreFor(agent types.Agent) int {
	if agent.AutoEngage.MinScore > 0 {
		return agent.AutoEngage.MinScore
	}
	return quality.MinScoreForStrictness(agent.AutoEngage.Strictness)
}

// FilterEligible applies the basic dedupe filter: drop items the agent
// authored, retweets, and items that already have a non-terminal reply.
// Pure: the inputs are never mutated.
func FilterEligible(agent types.Agent, items []types.CandidateItem, alreadyReplied map[string]bool) []types.CandidateItem {
	var eligible []types.CandidateItem
	for _, item := range items {
		if strings.EqualFold(item.AuthorHandle, agent.Handle) {
			continue
		}
		if item.IsRetweet {
			continue
		}
		if alreadyReplied[item.ID] {
			continue
		}
		eligible = append(eligible, item)
	}
	return eligible
}
