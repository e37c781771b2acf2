package engage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"postpilot/internal/config"
	"postpilot/internal/quality"
	"postpilot/internal/timeline"
	"postpilot/internal/types"
)

var testNow = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	agent types.Agent
	user  types.User
	usage types.Usage
	seen  map[string]bool

	dupSources     map[string]bool
	createErr      error
	replies        []*types.Reply
	statuses       map[string]types.ReplyStatus
	lastAutoEngage time.Time
	repliesIncr    int
	gensIncr       int
}

func (s *fakeStore) GetAgent(id string) (*types.Agent, error) {
	a := s.agent
	return &a, nil
}

func (s *fakeStore) GetUser(id string) (*types.User, error) {
	u := s.user
	return &u, nil
}

func (s *fakeStore) ActiveReplySourceIDs(agentID string) (map[string]bool, error) {
	if s.seen == nil {
		return map[string]bool{}, nil
	}
	return s.seen, nil
}

func (s *fakeStore) CreateReply(r *types.Reply) (bool, error) {
	if s.createErr != nil {
		return false, s.createErr
	}
	if s.dupSources[r.SourceID] {
		return false, nil
	}
	s.replies = append(s.replies, r)
	return true, nil
}

func (s *fakeStore) MarkReplyPosted(id, externalID string, postedAt time.Time) error {
	s.setStatus(id, types.ReplyPosted)
	return nil
}

func (s *fakeStore) SetReplyStatus(id string, status types.ReplyStatus) error {
	s.setStatus(id, status)
	return nil
}

func (s *fakeStore) setStatus(id string, status types.ReplyStatus) {
	if s.statuses == nil {
		s.statuses = make(map[string]types.ReplyStatus)
	}
	s.statuses[id] = status
}

func (s *fakeStore) Usage(userID, period string) (types.Usage, error) {
	return s.usage, nil
}

func (s *fakeStore) IncrementReplies(userID, period string) error {
	s.repliesIncr++
	return nil
}

func (s *fakeStore) IncrementGenerations(userID, period string) error {
	s.gensIncr++
	return nil
}

func (s *fakeStore) SetLastAutoEngage(agentID string, t time.Time) error {
	s.lastAutoEngage = t
	return nil
}

type fakePoster struct {
	items     []types.CandidateItem
	fetchErr  error
	verifyErr error
	postErrOn map[string]error
	posted    []string // source ids in post order
}

func (p *fakePoster) VerifySession(ctx context.Context, agentID string) error {
	return p.verifyErr
}

func (p *fakePoster) FetchTimeline(ctx context.Context, agentID string, max int) ([]types.CandidateItem, error) {
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.items, nil
}

func (p *fakePoster) Post(ctx context.Context, agentID, text, inReplyTo string) (types.PostReceipt, error) {
	if err := p.postErrOn[inReplyTo]; err != nil {
		return types.PostReceipt{}, err
	}
	p.posted = append(p.posted, inReplyTo)
	return types.PostReceipt{ExternalID: "ext-" + inReplyTo, PostedAt: testNow}, nil
}

type fakeGen struct {
	errOn map[string]error
	err   error
}

func (g *fakeGen) Reply(ctx context.Context, agent types.Agent, item types.CandidateItem) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	if err := g.errOn[item.ID]; err != nil {
		return "", err
	}
	return "reply to " + item.ID, nil
}

type fakeScorer struct {
	result quality.Result
	called bool
}

func (f *fakeScorer) Score(ctx context.Context, cands []types.CandidateItem, agent types.Agent, cfg quality.Config, maxAccept int) quality.Result {
	f.called = true
	return f.result
}

type fakeNotifier struct {
	subjects []string
}

func (n *fakeNotifier) Notify(user types.User, subject, body string) error {
	n.subjects = append(n.subjects, subject)
	return nil
}

func testAgent() types.Agent {
	return types.Agent{
		ID:     "a1",
		UserID: "u1",
		Name:   "Botling",
		Handle: "botling",
		Status: types.AgentRunning,
		AutoEngage: types.AutoEngageConfig{
			Enabled:        true,
			FrequencyHours: 4,
			MaxReplies:     3,
			Strictness:     3,
			QualityFilter:  true,
		},
	}
}

func items(ids ...string) []types.CandidateItem {
	out := make([]types.CandidateItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.CandidateItem{
			ID:           id,
			AuthorHandle: "someone",
			Text:         fmt.Sprintf("a sufficiently long candidate post %s", id),
		})
	}
	return out
}

func acceptAll(cands []types.CandidateItem, scores ...int) quality.Result {
	res := quality.Result{Accepted: cands}
	for i, c := range cands {
		res.Scores = append(res.Scores, types.QualityScore{
			ItemID: c.ID, Score: scores[i], ShouldEngage: true,
		})
	}
	return res
}

func newTestOrchestrator(st *fakeStore, p *fakePoster, g *fakeGen, sc *fakeScorer, n *fakeNotifier) *Orchestrator {
	o := New(st, p, g, sc, n, config.Default())
	o.now = func() time.Time { return testNow }
	o.sleep = func(time.Duration) {}
	return o
}

func TestRunCyclePostsBestFirst(t *testing.T) {
	st := &fakeStore{agent: testAgent(), user: types.User{ID: "u1", Plan: "free"}}
	accepted := items("c2", "c5")
	poster := &fakePoster{items: items("c1", "c2", "c3", "c4", "c5")}
	scorer := &fakeScorer{result: acceptAll(accepted, 9, 8)}

	o := newTestOrchestrator(st, poster, &fakeGen{}, scorer, &fakeNotifier{})
	stats, err := o.RunCycle(context.Background(), "a1")
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	want := CycleStats{Fetched: 5, Filtered: 5, Generated: 2, Posted: 2}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if len(poster.posted) != 2 || poster.posted[0] != "c2" || poster.posted[1] != "c5" {
		t.Errorf("expected posts [c2 c5] in order, got %v", poster.posted)
	}
	if st.repliesIncr != 2 || st.gensIncr != 2 {
		t.Errorf("expected 2 reply and 2 generation increments, got %d and %d", st.repliesIncr, st.gensIncr)
	}
	if !st.lastAutoEngage.Equal(testNow) {
		t.Errorf("expected clock advanced to trigger time, got %v", st.lastAutoEngage)
	}

	// Persisted replies carry their quality score
	if len(st.replies) != 2 || st.replies[0].Score != 9 || st.replies[1].Score != 8 {
		t.Errorf("expected reply scores [9 8], got %+v", st.replies)
	}
}

func TestRunCycleQuotaTruncatesDrafts(t *testing.T) {
	st := &fakeStore{
		agent: testAgent(),
		user:  types.User{ID: "u1", Plan: "free"},
		usage: types.Usage{RepliesUsed: 9}, // free plan allows 10
	}
	accepted := items("c1", "c2", "c3")
	poster := &fakePoster{items: accepted}
	scorer := &fakeScorer{result: acceptAll(accepted, 8, 7, 6)}

	o := newTestOrchestrator(st, poster, &fakeGen{}, scorer, &fakeNotifier{})
	stats, err := o.RunCycle(context.Background(), "a1")
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if stats.Generated != 3 {
		t.Errorf("expected 3 generated before quota, got %d", stats.Generated)
	}
	if stats.Posted != 1 || st.repliesIncr != 1 {
		t.Errorf("expected exactly 1 post under quota, got posted=%d incr=%d", stats.Posted, st.repliesIncr)
	}
}

func TestRunCycleQuotaExhausted(t *testing.T) {
	st := &fakeStore{
		agent: testAgent(),
		user:  types.User{ID: "u1", Plan: "free"},
		usage: types.Usage{RepliesUsed: 10},
	}
	accepted := items("c1", "c2")
	poster := &fakePoster{items: accepted}
	scorer := &fakeScorer{result: acceptAll(accepted, 8, 7)}

	o := newTestOrchestrator(st, poster, &fakeGen{}, scorer, &fakeNotifier{})
	stats, err := o.RunCycle(context.Background(), "a1")

	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if stats.Generated != 2 || stats.Posted != 0 {
		t.Errorf("expected generated counts preserved and nothing posted, got %+v", stats)
	}
	if !st.lastAutoEngage.Equal(testNow) {
		t.Errorf("expected clock advanced despite failure, got %v", st.lastAutoEngage)
	}
}

func TestRunCycleSoftBlockCoolsDown(t *testing.T) {
	st := &fakeStore{agent: testAgent(), user: types.User{ID: "u1", Plan: "free", Email: "o@example.com"}}
	accepted := items("c1")
	poster := &fakePoster{items: accepted, verifyErr: timeline.ErrBlocked}
	scorer := &fakeScorer{result: acceptAll(accepted, 8)}
	ntf := &fakeNotifier{}

	o := newTestOrchestrator(st, poster, &fakeGen{}, scorer, ntf)
	_, err := o.RunCycle(context.Background(), "a1")

	if !errors.Is(err, ErrProviderBlocked) {
		t.Fatalf("expected ErrProviderBlocked, got %v", err)
	}
	wantClock := testNow.Add(config.Default().BlockCooldown())
	if !st.lastAutoEngage.Equal(wantClock) {
		t.Errorf("expected cooldown clock %v, got %v", wantClock, st.lastAutoEngage)
	}
	if len(ntf.subjects) != 1 {
		t.Errorf("expected 1 owner notification, got %v", ntf.subjects)
	}
}

func TestRunCycleExpiredSession(t *testing.T) {
	st := &fakeStore{agent: testAgent(), user: types.User{ID: "u1", Plan: "free"}}
	accepted := items("c1")
	poster := &fakePoster{items: accepted, verifyErr: timeline.ErrSessionExpired}
	ntf := &fakeNotifier{}

	o := newTestOrchestrator(st, poster, &fakeGen{}, &fakeScorer{result: acceptAll(accepted, 8)}, ntf)
	_, err := o.RunCycle(context.Background(), "a1")

	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
	if !st.lastAutoEngage.Equal(testNow) {
		t.Errorf("expected normal clock advance, got %v", st.lastAutoEngage)
	}
	if len(ntf.subjects) != 1 {
		t.Errorf("expected 1 owner notification, got %v", ntf.subjects)
	}
}

func TestRunCycleNoSession(t *testing.T) {
	st := &fakeStore{agent: testAgent(), user: types.User{ID: "u1", Plan: "free"}}
	poster := &fakePoster{fetchErr: fmt.Errorf("%w: no cookies", timeline.ErrNoSession)}

	o := newTestOrchestrator(st, poster, &fakeGen{}, &fakeScorer{}, &fakeNotifier{})
	_, err := o.RunCycle(context.Background(), "a1")

	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if !st.lastAutoEngage.Equal(testNow) {
		t.Errorf("expected clock advanced, got %v", st.lastAutoEngage)
	}
}

func TestRunCycleDuplicateReplySkipped(t *testing.T) {
	st := &fakeStore{
		agent:      testAgent(),
		user:       types.User{ID: "u1", Plan: "free"},
		dupSources: map[string]bool{"c1": true},
	}
	accepted := items("c1")
	poster := &fakePoster{items: accepted}

	o := newTestOrchestrator(st, poster, &fakeGen{}, &fakeScorer{result: acceptAll(accepted, 8)}, &fakeNotifier{})
	stats, err := o.RunCycle(context.Background(), "a1")
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if stats.Posted != 0 || stats.Failed != 0 {
		t.Errorf("expected duplicate silently skipped, got %+v", stats)
	}
	if len(poster.posted) != 0 {
		t.Errorf("expected no posts, got %v", poster.posted)
	}
}

func TestRunCyclePostFailure(t *testing.T) {
	st := &fakeStore{agent: testAgent(), user: types.User{ID: "u1", Plan: "free"}}
	accepted := items("c1", "c2")
	poster := &fakePoster{
		items:     accepted,
		postErrOn: map[string]error{"c1": errors.New("compose box vanished")},
	}

	o := newTestOrchestrator(st, poster, &fakeGen{}, &fakeScorer{result: acceptAll(accepted, 8, 7)}, &fakeNotifier{})
	stats, err := o.RunCycle(context.Background(), "a1")

	if !errors.Is(err, ErrPostFailed) {
		t.Fatalf("expected ErrPostFailed, got %v", err)
	}
	if stats.Posted != 1 || stats.Failed != 1 {
		t.Errorf("expected 1 posted 1 failed, got %+v", stats)
	}

	// The failed reply must be released so the item can be retried later
	failedID := st.replies[0].ID
	if st.statuses[failedID] != types.ReplyFailed {
		t.Errorf("expected reply %s marked failed, got %s", failedID, st.statuses[failedID])
	}
}

func TestRunCycleAllGenerationsFail(t *testing.T) {
	st := &fakeStore{agent: testAgent(), user: types.User{ID: "u1", Plan: "free"}}
	accepted := items("c1", "c2")
	poster := &fakePoster{items: accepted}
	gen := &fakeGen{err: errors.New("validation never passed")}

	o := newTestOrchestrator(st, poster, gen, &fakeScorer{result: acceptAll(accepted, 8, 7)}, &fakeNotifier{})
	_, err := o.RunCycle(context.Background(), "a1")

	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if !st.lastAutoEngage.Equal(testNow) {
		t.Errorf("expected clock advanced, got %v", st.lastAutoEngage)
	}
}

func TestRunCycleFallbackSkipsScorer(t *testing.T) {
	agent := testAgent()
	agent.AutoEngage.QualityFilter = false

	st := &fakeStore{agent: agent, user: types.User{ID: "u1", Plan: "free"}}
	poster := &fakePoster{items: items("c1", "c2")}
	scorer := &fakeScorer{}

	o := newTestOrchestrator(st, poster, &fakeGen{}, scorer, &fakeNotifier{})
	stats, err := o.RunCycle(context.Background(), "a1")
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if scorer.called {
		t.Error("expected LLM scorer to be skipped with quality filter disabled")
	}
	if stats.Posted != 2 {
		t.Errorf("expected both candidates posted via fallback, got %+v", stats)
	}
}

func TestFilterEligible(t *testing.T) {
	agent := testAgent()
	in := []types.CandidateItem{
		{ID: "own", AuthorHandle: "BotLing"},
		{ID: "rt", AuthorHandle: "other", IsRetweet: true},
		{ID: "seen", AuthorHandle: "other"},
		{ID: "fresh", AuthorHandle: "other"},
	}
	seen := map[string]bool{"seen": true}

	got := FilterEligible(agent, in, seen)

	if len(got) != 1 || got[0].ID != "fresh" {
		t.Fatalf("expected only fresh item, got %v", got)
	}
	if len(in) != 4 {
		t.Errorf("input slice mutated, len %d", len(in))
	}

	// Applying the filter again changes nothing
	again := FilterEligible(agent, got, seen)
	if len(again) != 1 || again[0].ID != "fresh" {
		t.Errorf("expected filter to be stable, got %v", again)
	}
}
