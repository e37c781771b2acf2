// Package scheduler drives the periodic sweeps: posting due scheduled
// content, kicking off auto-tweet cycles, and kicking off auto-engage
// cycles.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"postpilot/internal/config"
	"postpilot/internal/engage"
	"postpilot/internal/types"
)

// Store is the persistence surface the sweeps need
type Store interface {
	ListRunningAgents() ([]types.Agent, error)
	DueScheduledPosts(now time.Time) ([]types.ScheduledPost, error)
	CreateScheduledPost(p *types.ScheduledPost) error
	SetScheduledPostStatus(id string, status types.ScheduledPostStatus) error
	MarkScheduledPostPosted(id string, receipt types.PostReceipt) error
	SetLastAutoTweet(agentID string, t time.Time) error
	GetUser(id string) (*types.User, error)
	Usage(userID, period string) (types.Usage, error)
	IncrementGenerations(userID, period string) error
}

// Poster publishes queued content
type Poster interface {
	Post(ctx context.Context, agentID, text, inReplyTo string) (types.PostReceipt, error)
}

// Generator produces original post text in the agent's voice
type Generator interface {
	Tweet(ctx context.Context, agent types.Agent) (string, error)
}

// Engager runs one auto-engage cycle
type Engager interface {
	RunCycle(ctx context.Context, agentID string) (engage.CycleStats, error)
}

// Scheduler owns the recurring tick. Create on startup, Stop on shutdown.
type Scheduler struct {
	cron    *cron.Cron
	store   Store
	poster  Poster
	gen     Generator
	engager Engager
	cfg     *config.Config

	now func() time.Time
}

// New creates a scheduler
func New(store Store, poster Poster, gen Generator, engager Engager, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		store:   store,
		poster:  poster,
		gen:     gen,
		engager: engager,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start begins the recurring tick
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("@every 1m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		s.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}

	log.Println("[scheduler] Starting scheduler")
	s.cron.Start()
	return nil
}

// Stop halts the tick; the returned context is done when running jobs finish
func (s *Scheduler) Stop() context.Context {
	log.Println("[scheduler] Stopping scheduler")
	return s.cron.Stop()
}

// Tick runs the three sweeps sequentially. One agent's failure never stops
// a sweep: each unit of work is isolated and surfaces only as a logged
// failure.
func (s *Scheduler) Tick(ctx context.Context) {
	s.sweepDuePosts(ctx)
	s.sweepAutoTweet(ctx)
	s.sweepAutoEngage(ctx)
}

// Due reports whether an interval has elapsed: now >= lastRun + frequency,
// inclusive, with a tolerance window subtracted so a tick interval
// comparable to the frequency cannot skip a due cycle by a sliver of timer
// drift. A never-run agent is always due.
func Due(now time.Time, lastRun *time.Time, frequencyHours float64, tolerance time.Duration) bool {
	if lastRun == nil {
		return true
	}
	interval := time.Duration(frequencyHours * float64(time.Hour))
	return !now.Before(lastRun.Add(interval).Add(-tolerance))
}

// sweepDuePosts publishes every scheduled post whose target time has passed
func (s *Scheduler) sweepDuePosts(ctx context.Context) {
	posts, err := s.store.DueScheduledPosts(s.now())
	if err != nil {
		log.Printf("[scheduler] Failed to list due posts: %v", err)
		return
	}

	for _, post := range posts {
		s.runSafely("post "+post.ID, func() {
			s.publish(ctx, post)
		})
	}
}

func (s *Scheduler) publish(ctx context.Context, post types.ScheduledPost) {
	if err := s.store.SetScheduledPostStatus(post.ID, types.PostPosting); err != nil {
		log.Printf("[scheduler] Failed to claim post %s: %v", post.ID, err)
		return
	}

	receipt, err := s.poster.Post(ctx, post.AgentID, post.Content, "")
	if err != nil {
		log.Printf("[scheduler] Post %s failed: %v", post.ID, err)
		if uerr := s.store.SetScheduledPostStatus(post.ID, types.PostFailed); uerr != nil {
			log.Printf("[scheduler] Failed to mark post %s failed: %v", post.ID, uerr)
		}
		return
	}

	if err := s.store.MarkScheduledPostPosted(post.ID, receipt); err != nil {
		log.Printf("[scheduler] Failed to mark post %s posted: %v", post.ID, err)
	}
}

// sweepAutoTweet kicks off an auto-tweet cycle for every due agent
func (s *Scheduler) sweepAutoTweet(ctx context.Context) {
	agents, err := s.store.ListRunningAgents()
	if err != nil {
		log.Printf("[scheduler] Failed to list agents: %v", err)
		return
	}

	for _, agent := range agents {
		at := agent.AutoTweet
		if !at.Enabled || at.FrequencyHours <= 0 || at.Count <= 0 {
			continue
		}
		if !Due(s.now(), at.LastRun, at.FrequencyHours, s.cfg.Tolerance()) {
			continue
		}
		s.runSafely("auto-tweet "+agent.ID, func() {
			s.runAutoTweetCycle(ctx, agent)
		})
	}
}

// runAutoTweetCycle generates the agent's configured number of posts and
// spreads their target times evenly across the interval.
func (s *Scheduler) runAutoTweetCycle(ctx context.Context, agent types.Agent) {
	now := s.now()

	// Advance the clock regardless of how many slots succeed; retrying a
	// persistently failing agent every tick would be a retry storm.
	defer func() {
		if err := s.store.SetLastAutoTweet(agent.ID, now); err != nil {
			log.Printf("[scheduler] Failed to advance auto-tweet clock for %s: %v", agent.ID, err)
		}
	}()

	user, err := s.store.GetUser(agent.UserID)
	if err != nil {
		log.Printf("[scheduler] Failed to load user for agent %s: %v", agent.ID, err)
		return
	}

	period := types.Period(now)
	usage, err := s.store.Usage(user.ID, period)
	if err != nil {
		log.Printf("[scheduler] Failed to load usage for user %s: %v", user.ID, err)
		return
	}

	count := agent.AutoTweet.Count
	remaining := s.cfg.PlanFor(user.Plan).MonthlyGenerations - usage.GenerationsUsed
	if remaining <= 0 {
		log.Printf("[scheduler] Generation quota exhausted for user %s, skipping auto-tweet", user.ID)
		return
	}
	if count > remaining {
		count = remaining
	}

	interval := time.Duration(agent.AutoTweet.FrequencyHours * float64(time.Hour))
	spacing := interval / time.Duration(agent.AutoTweet.Count)
	first := now.Add(s.cfg.Lead())

	created := 0
	for i := 0; i < count; i++ {
		text, err := s.gen.Tweet(ctx, agent)
		if err != nil {
			// A failed slot is skipped, not fatal to the cycle
			log.Printf("[scheduler] Generation failed for agent %s slot %d: %v", agent.ID, i, err)
			continue
		}
		if err := s.store.IncrementGenerations(user.ID, period); err != nil {
			log.Printf("[scheduler] Failed to count generation for user %s: %v", user.ID, err)
		}

		post := &types.ScheduledPost{
			ID:           uuid.NewString(),
			AgentID:      agent.ID,
			Content:      text,
			ScheduledFor: first.Add(time.Duration(i) * spacing),
			Status:       types.PostScheduled,
			CreatedAt:    now,
		}
		if err := s.store.CreateScheduledPost(post); err != nil {
			log.Printf("[scheduler] Failed to queue post for agent %s: %v", agent.ID, err)
			continue
		}
		created++
	}

	log.Printf("[scheduler] Agent %s: queued %d/%d auto-tweets", agent.ID, created, agent.AutoTweet.Count)
}

// sweepAutoEngage kicks off an engagement cycle for every due agent
func (s *Scheduler) sweepAutoEngage(ctx context.Context) {
	agents, err := s.store.ListRunningAgents()
	if err != nil {
		log.Printf("[scheduler] Failed to list agents: %v", err)
		return
	}

	for _, agent := range agents {
		ae := agent.AutoEngage
		if !ae.Enabled || ae.FrequencyHours <= 0 {
			continue
		}
		if !Due(s.now(), ae.LastRun, ae.FrequencyHours, s.cfg.Tolerance()) {
			continue
		}

		id := agent.ID
		s.runSafely("auto-engage "+id, func() {
			stats, err := s.engager.RunCycle(ctx, id)
			if err != nil {
				log.Printf("[scheduler] Engage cycle for %s: %+v: %v", id, stats, err)
				return
			}
			log.Printf("[scheduler] Engage cycle for %s: %+v", id, stats)
		})
	}
}

// runSafely isolates one unit of work so a panic cannot take down the sweep
func (s *Scheduler) runSafely(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[scheduler] %s panicked: %v", name, r)
		}
	}()
	fn()
}
