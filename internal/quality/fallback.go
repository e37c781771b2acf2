package quality

import (
	"strings"
	"unicode"

	"postpilot/internal/types"
)

// DefaultMinTextLength is the fallback filter's minimum candidate length
const DefaultMinTextLength = 20

// FallbackConfig parameterizes the keyword heuristic
type FallbackConfig struct {
	KeywordBlacklist []string
	MinTextLength    int
}

// Fallback applies the keyword heuristic used when LLM quality filtering is
// disabled: drop candidates that are too short, contain a blacklisted
// keyword, or carry no letters or digits at all (pure emoji/symbol posts).
func Fallback(candidates []types.CandidateItem, cfg FallbackConfig) []types.CandidateItem {
	minLen := cfg.MinTextLength
	if minLen <= 0 {
		minLen = DefaultMinTextLength
	}

	var accepted []types.CandidateItem
	for _, c := range candidates {
		text := strings.TrimSpace(c.Text)
		if len([]rune(text)) < minLen {
			continue
		}
		if containsKeyword(text, cfg.KeywordBlacklist) {
			continue
		}
		if !hasSubstance(text) {
			continue
		}
		accepted = append(accepted, c)
	}
	return accepted
}

func containsKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func hasSubstance(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
