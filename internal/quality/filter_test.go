package quality

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"postpilot/internal/types"
)

type fakeGateway struct {
	responses []string
	err       error
	calls     int
}

func (g *fakeGateway) Generate(ctx context.Context, system, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "[]", nil
	}
	resp := g.responses[0]
	if len(g.responses) > 1 {
		g.responses = g.responses[1:]
	}
	return resp, nil
}

func newTestFilter(g *fakeGateway) *Filter {
	f := New(g)
	f.sleep = func(time.Duration) {}
	return f
}

func candidates(n int) []types.CandidateItem {
	items := make([]types.CandidateItem, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, types.CandidateItem{
			ID:           fmt.Sprintf("c%d", i),
			AuthorHandle: fmt.Sprintf("author%d", i),
			Text:         fmt.Sprintf("candidate post number %d with some substance", i),
		})
	}
	return items
}

func agentFixture() types.Agent {
	return types.Agent{
		ID:     "a1",
		Name:   "Botling",
		Handle: "botling",
		Goal:   "grow the account",
	}
}

func TestScoreRanksAndTruncates(t *testing.T) {
	gw := &fakeGateway{responses: []string{`[
		{"id": "c1", "score": 5, "reasoning": "meh", "shouldEngage": true, "flags": []},
		{"id": "c2", "score": 9, "reasoning": "strong", "shouldEngage": true, "flags": []},
		{"id": "c3", "score": 2, "reasoning": "weak", "shouldEngage": false, "flags": []},
		{"id": "c4", "score": 7, "reasoning": "good", "shouldEngage": true, "flags": []},
		{"id": "c5", "score": 8, "reasoning": "good", "shouldEngage": true, "flags": []}
	]`}}
	f := newTestFilter(gw)

	res := f.Score(context.Background(), candidates(5), agentFixture(), Config{MinScore: 6, BatchSize: 5}, 2)

	if len(res.Scores) != 5 {
		t.Fatalf("expected 5 scores, got %d", len(res.Scores))
	}
	for i, sc := range res.Scores {
		want := fmt.Sprintf("c%d", i+1)
		if sc.ItemID != want {
			t.Errorf("score %d: expected item %s, got %s", i, want, sc.ItemID)
		}
	}

	if len(res.Accepted) != 2 {
		t.Fatalf("expected 2 accepted, got %d", len(res.Accepted))
	}
	if res.Accepted[0].ID != "c2" || res.Accepted[1].ID != "c5" {
		t.Errorf("expected best-first [c2 c5], got [%s %s]", res.Accepted[0].ID, res.Accepted[1].ID)
	}
}

func TestScoreClampsOutOfRange(t *testing.T) {
	gw := &fakeGateway{responses: []string{`[
		{"id": "c1", "score": 42, "shouldEngage": true},
		{"id": "c2", "score": -3, "shouldEngage": true}
	]`}}
	f := newTestFilter(gw)

	res := f.Score(context.Background(), candidates(2), agentFixture(), Config{}, 0)

	if res.Scores[0].Score != 10 {
		t.Errorf("expected score clamped to 10, got %d", res.Scores[0].Score)
	}
	if res.Scores[1].Score != 1 {
		t.Errorf("expected score clamped to 1, got %d", res.Scores[1].Score)
	}
}

func TestScoreParseFailureDegradesBatch(t *testing.T) {
	gw := &fakeGateway{responses: []string{"I am unable to score these posts."}}
	f := newTestFilter(gw)

	res := f.Score(context.Background(), candidates(3), agentFixture(), Config{MinScore: 2}, 0)

	if len(res.Accepted) != 0 {
		t.Errorf("expected no accepted candidates, got %d", len(res.Accepted))
	}
	if len(res.Scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(res.Scores))
	}
	for _, sc := range res.Scores {
		if sc.Score != fallbackScore {
			t.Errorf("item %s: expected fallback score %d, got %d", sc.ItemID, fallbackScore, sc.Score)
		}
		if len(sc.Flags) != 1 || sc.Flags[0] != FlagParseFailed {
			t.Errorf("item %s: expected [%s] flags, got %v", sc.ItemID, FlagParseFailed, sc.Flags)
		}
		if sc.ShouldEngage {
			t.Errorf("item %s: degraded score must not engage", sc.ItemID)
		}
	}
}

func TestScoreGatewayFailureDegradesBatch(t *testing.T) {
	gw := &fakeGateway{err: errors.New("rate limited")}
	f := newTestFilter(gw)

	res := f.Score(context.Background(), candidates(2), agentFixture(), Config{}, 0)

	if len(res.Accepted) != 0 {
		t.Errorf("expected no accepted candidates, got %d", len(res.Accepted))
	}
	for _, sc := range res.Scores {
		if len(sc.Flags) != 1 || sc.Flags[0] != FlagGatewayFailed {
			t.Errorf("item %s: expected [%s] flags, got %v", sc.ItemID, FlagGatewayFailed, sc.Flags)
		}
	}
}

func TestScoreOnlyFailedBatchDegrades(t *testing.T) {
	// First batch parses, second does not: degradation is per batch
	gw := &fakeGateway{responses: []string{
		`[{"id": "c1", "score": 8, "shouldEngage": true}, {"id": "c2", "score": 7, "shouldEngage": true}]`,
		"no json here",
	}}
	f := newTestFilter(gw)

	res := f.Score(context.Background(), candidates(4), agentFixture(), Config{MinScore: 5, BatchSize: 2}, 0)

	if gw.calls != 2 {
		t.Fatalf("expected 2 gateway calls, got %d", gw.calls)
	}
	if len(res.Accepted) != 2 {
		t.Fatalf("expected first batch accepted, got %d", len(res.Accepted))
	}
	if res.Scores[2].Flags[0] != FlagParseFailed || res.Scores[3].Flags[0] != FlagParseFailed {
		t.Errorf("expected second batch flagged %s, got %v and %v",
			FlagParseFailed, res.Scores[2].Flags, res.Scores[3].Flags)
	}
}

func TestScoreBlacklistedFlagsReject(t *testing.T) {
	gw := &fakeGateway{responses: []string{`[
		{"id": "c1", "score": 9, "shouldEngage": true, "flags": ["crypto"]},
		{"id": "c2", "score": 9, "shouldEngage": true, "flags": ["Spam"]},
		{"id": "c3", "score": 9, "shouldEngage": true, "flags": ["offtopic"]}
	]`}}
	f := newTestFilter(gw)

	res := f.Score(context.Background(), candidates(3), agentFixture(), Config{
		MinScore:          5,
		CategoryBlacklist: []string{"spam", "crypto"},
	}, 0)

	if len(res.Accepted) != 1 || res.Accepted[0].ID != "c3" {
		t.Fatalf("expected only c3 accepted, got %v", res.Accepted)
	}
}

func TestScoreMissingItemGetsDefault(t *testing.T) {
	gw := &fakeGateway{responses: []string{`[{"id": "c1", "score": 8, "shouldEngage": true}]`}}
	f := newTestFilter(gw)

	res := f.Score(context.Background(), candidates(2), agentFixture(), Config{MinScore: 5}, 0)

	if len(res.Scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(res.Scores))
	}
	missing := res.Scores[1]
	if missing.ItemID != "c2" || missing.Score != fallbackScore {
		t.Errorf("expected c2 at fallback score, got %s score %d", missing.ItemID, missing.Score)
	}
	if len(missing.Flags) != 1 || missing.Flags[0] != FlagUnscored {
		t.Errorf("expected [%s] flags, got %v", FlagUnscored, missing.Flags)
	}
}

func TestScoreBatchesWithDelay(t *testing.T) {
	gw := &fakeGateway{responses: []string{"[]"}}
	f := New(gw)

	var sleeps []time.Duration
	f.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	f.Score(context.Background(), candidates(7), agentFixture(), Config{
		BatchSize:  3,
		BatchDelay: 2 * time.Second,
	}, 0)

	if gw.calls != 3 {
		t.Errorf("expected 3 gateway calls for 7 candidates at batch size 3, got %d", gw.calls)
	}
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 inter-batch sleeps, got %d", len(sleeps))
	}
	for _, d := range sleeps {
		if d != 2*time.Second {
			t.Errorf("expected 2s delay, got %v", d)
		}
	}
}

func TestScoreEmptyInput(t *testing.T) {
	gw := &fakeGateway{}
	f := newTestFilter(gw)

	res := f.Score(context.Background(), nil, agentFixture(), Config{}, 0)
	if gw.calls != 0 {
		t.Errorf("expected no gateway calls, got %d", gw.calls)
	}
	if len(res.Accepted) != 0 || len(res.Scores) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestScoreSurroundingProse(t *testing.T) {
	// Models sometimes wrap the JSON despite instructions
	gw := &fakeGateway{responses: []string{
		"Here are the scores:\n[{\"id\": \"c1\", \"score\": 6, \"shouldEngage\": true}]\nHope that helps!",
	}}
	f := newTestFilter(gw)

	res := f.Score(context.Background(), candidates(1), agentFixture(), Config{MinScore: 5}, 0)
	if len(res.Accepted) != 1 {
		t.Fatalf("expected wrapped JSON to parse, got %d accepted", len(res.Accepted))
	}
}

func TestMinScoreForStrictness(t *testing.T) {
	cases := []struct {
		strictness, want int
	}{
		{0, 2}, {1, 2}, {2, 4}, {3, 4}, {4, 6}, {5, 6},
	}
	for _, tc := range cases {
		if got := MinScoreForStrictness(tc.strictness); got != tc.want {
			t.Errorf("MinScoreForStrictness(%d) = %d, want %d", tc.strictness, got, tc.want)
		}
	}
}

func TestFallback(t *testing.T) {
	items := []types.CandidateItem{
		{ID: "short", Text: "too short"},
		{ID: "giveaway", Text: "huge GIVEAWAY follow and repost to win a prize"},
		{ID: "emoji", Text: "🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥🔥"},
		{ID: "ok", Text: "a substantive post about compiler internals"},
	}

	accepted := Fallback(items, FallbackConfig{KeywordBlacklist: []string{"giveaway"}})

	if len(accepted) != 1 || accepted[0].ID != "ok" {
		t.Fatalf("expected only the substantive post, got %v", accepted)
	}
}
