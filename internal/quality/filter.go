// Package quality scores timeline candidates for reply-worthiness. The LLM
// path degrades per batch on failure; it never aborts a cycle.
package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"postpilot/internal/llm"
	"postpilot/internal/types"
)

const (
	// DefaultBatchSize bounds prompt size and keeps failures localized
	DefaultBatchSize = 5

	// fallbackScore is assigned to every candidate in a batch whose
	// scoring call or parse failed
	fallbackScore = 3

	minScore = 1
	maxScore = 10
)

// Flags attached to synthesized scores
const (
	FlagParseFailed   = "parse-failed"
	FlagGatewayFailed = "gateway-failed"
	FlagUnscored      = "unscored"
)

// Config parameterizes one scoring pass
type Config struct {
	MinScore          int
	CategoryBlacklist []string
	BatchSize         int
	BatchDelay        time.Duration
}

// Result pairs the accepted candidates with the full score set. Scores holds
// exactly one entry per input candidate, in input order.
type Result struct {
	Accepted []types.CandidateItem
	Scores   []types.QualityScore
}

// MinScoreForStrictness maps an agent's strictness level to the minimum
// acceptable score: 0-1 lenient, 2-3 moderate, 4-5 strict.
func MinScoreForStrictness(strictness int) int {
	switch {
	case strictness <= 1:
		return 2
	case strictness <= 3:
		return 4
	default:
		return 6
	}
}

// Filter scores candidates through the LLM gateway
type Filter struct {
	gateway llm.Gateway
	sleep   func(time.Duration)
}

// New creates a quality filter
func New(gateway llm.Gateway) *Filter {
	return &Filter{gateway: gateway, sleep: time.Sleep}
}

// Score batches the candidates, asks the gateway to score each, and returns
// the candidates worth engaging with, best first, truncated to maxAccept
// (unlimited if maxAccept <= 0). Gateway or parse failures degrade the
// affected batch to a uniform low score; Score itself never fails.
func (f *Filter) Score(ctx context.Context, candidates []types.CandidateItem, agent types.Agent, cfg Config, maxAccept int) Result {
	if len(candidates) == 0 {
		return Result{}
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	scores := make([]types.QualityScore, 0, len(candidates))
	for start := 0; start < len(candidates); start += batchSize {
		end := min(start+batchSize, len(candidates))
		batch := candidates[start:end]

		if start > 0 && cfg.BatchDelay > 0 {
			f.sleep(cfg.BatchDelay)
		}

		scores = append(scores, f.scoreBatch(ctx, batch, agent)...)
	}

	byID := make(map[string]types.QualityScore, len(scores))
	for _, sc := range scores {
		byID[sc.ItemID] = sc
	}

	var accepted []types.CandidateItem
	for _, c := range candidates {
		sc := byID[c.ID]
		if sc.ShouldEngage && sc.Score >= cfg.MinScore && !flagged(sc.Flags, cfg.CategoryBlacklist) {
			accepted = append(accepted, c)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return byID[accepted[i].ID].Score > byID[accepted[j].ID].Score
	})
	if maxAccept > 0 && len(accepted) > maxAccept {
		accepted = accepted[:maxAccept]
	}

	return Result{Accepted: accepted, Scores: scores}
}

// scoreBatch returns exactly one score per candidate in the batch
func (f *Filter) scoreBatch(ctx context.Context, batch []types.CandidateItem, agent types.Agent) []types.QualityScore {
	raw, err := f.gateway.Generate(ctx, scoringSystemPrompt(agent), scoringPrompt(batch))
	if err != nil {
		log.Printf("[quality] Scoring call failed, rejecting batch of %d: %v", len(batch), err)
		return uniformScores(batch, FlagGatewayFailed)
	}

	parsed, ok := parseScores(raw)
	if !ok {
		log.Printf("[quality] Unparseable scoring response, rejecting batch of %d", len(batch))
		return uniformScores(batch, FlagParseFailed)
	}

	byID := make(map[string]types.QualityScore, len(parsed))
	for _, sc := range parsed {
		byID[sc.ItemID] = sc
	}

	scores := make([]types.QualityScore, 0, len(batch))
	for _, c := range batch {
		if sc, ok := byID[c.ID]; ok {
			scores = append(scores, sc)
			continue
		}
		scores = append(scores, types.QualityScore{
			ItemID: c.ID,
			Score:  fallbackScore,
			Flags:  []string{FlagUnscored},
		})
	}
	return scores
}

func uniformScores(batch []types.CandidateItem, flag string) []types.QualityScore {
	scores := make([]types.QualityScore, 0, len(batch))
	for _, c := range batch {
		scores = append(scores, types.QualityScore{
			ItemID: c.ID,
			Score:  fallbackScore,
			Flags:  []string{flag},
		})
	}
	return scores
}

// parseScores extracts the first bracketed JSON array from the response and
// coerces each element field-by-field. Missing or mistyped fields get safe
// defaults rather than failing the batch.
func parseScores(raw string) ([]types.QualityScore, bool) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var entries []map[string]any
	dec := json.NewDecoder(strings.NewReader(raw[start : end+1]))
	dec.UseNumber()
	if err := dec.Decode(&entries); err != nil {
		return nil, false
	}

	scores := make([]types.QualityScore, 0, len(entries))
	for _, e := range entries {
		scores = append(scores, types.QualityScore{
			ItemID:       asString(e["id"]),
			Score:        clamp(asInt(e["score"], fallbackScore)),
			Reasoning:    asString(e["reasoning"]),
			ShouldEngage: asBool(e["shouldEngage"]),
			Flags:        asStrings(e["flags"]),
		})
	}
	return scores, true
}

func clamp(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func flagged(flags, blacklist []string) bool {
	for _, f := range flags {
		for _, b := range blacklist {
			if strings.EqualFold(f, b) {
				return true
			}
		}
	}
	return false
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func asInt(v any, def int) int {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return int(f)
		}
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return int(f)
		}
	}
	return def
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}

func asStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// scoringSystemPrompt frames the filtering task around the agent's persona
func scoringSystemPrompt(agent types.Agent) string {
	var sb strings.Builder

	sb.WriteString("You are a quality filter deciding which timeline posts an account should reply to.\n\n")
	sb.WriteString("## Account\n")
	sb.WriteString(fmt.Sprintf("Name: %s (@%s)\n", agent.Name, agent.Handle))
	if agent.Goal != "" {
		sb.WriteString(fmt.Sprintf("Goal: %s\n", agent.Goal))
	}
	if len(agent.Brand.Topics) > 0 {
		sb.WriteString(fmt.Sprintf("Topics: %s\n", strings.Join(agent.Brand.Topics, ", ")))
	}

	return sb.String()
}

// scoringPrompt embeds each candidate and the expected output format
func scoringPrompt(batch []types.CandidateItem) string {
	var sb strings.Builder

	sb.WriteString("## Posts to Score\n\n")
	for i, c := range batch {
		sb.WriteString(fmt.Sprintf("### Post %d (ID: %s)\n", i+1, c.ID))
		sb.WriteString(fmt.Sprintf("Author: @%s (%s)\n", c.AuthorHandle, c.AuthorName))
		sb.WriteString(fmt.Sprintf("Content: %s\n", c.Text))
		sb.WriteString(fmt.Sprintf("Engagement: %d likes, %d reposts, %d replies\n\n", c.Likes, c.Retweets, c.Replies))
	}

	sb.WriteString("## Task\n\n")
	sb.WriteString("For each post, provide:\n")
	sb.WriteString("1. score (1 to 10): How worthwhile is a reply from this account?\n")
	sb.WriteString("2. reasoning (string): One sentence explaining the score\n")
	sb.WriteString("3. shouldEngage (boolean): Should the account reply at all?\n")
	sb.WriteString("4. flags (array): Any of: spam, crypto, offensive, bait, offtopic\n\n")

	sb.WriteString("IMPORTANT: Respond with ONLY a valid JSON array. No markdown, no code blocks, no explanation - just the raw JSON starting with [ and ending with ].\n\n")
	sb.WriteString("Example structure:\n")
	sb.WriteString(`[{"id": "...", "score": 7, "reasoning": "Substantive question about...", "shouldEngage": true, "flags": []}]`)
	sb.WriteString("\n")

	return sb.String()
}
