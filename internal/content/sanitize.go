// Package content turns raw LLM output into platform-safe post text and
// builds the persona prompts that produce it.
package content

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPostLength is the hard platform character budget.
	MaxPostLength = 280

	// SoftLengthLimit is the validation ceiling, intentionally stricter
	// than the platform limit.
	SoftLengthLimit = 100
)

var (
	labelRe      = regexp.MustCompile(`(?i)^(tweet|reply|post|response)\s*:\s*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	sentenceRe   = regexp.MustCompile(`[.!?]+\s`)

	dashReplacer = strings.NewReplacer("—", "-", "–", "-", "−", "-", "―", "-")
)

// Sanitize normalizes raw LLM text into a postable string: strips wrapping
// quotes and leading role labels, normalizes dashes, collapses whitespace,
// trims trailing sentence punctuation, and hard-truncates to MaxPostLength
// with an ellipsis marker. Sanitize is idempotent.
func Sanitize(raw string) string {
	s := raw
	// Run to a fixpoint: trimming punctuation or truncating can expose
	// another wrapping layer. Every changing pass either shortens the
	// string or replaces a dash, so this terminates.
	for {
		next := sanitizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func sanitizeOnce(s string) string {
	s = strings.TrimSpace(s)
	s = labelRe.ReplaceAllString(s, "")
	s = stripWrappingQuotes(s)
	s = dashReplacer.Replace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".!?")
	s = truncate(s, MaxPostLength)
	return s
}

// quotePairs maps opening quote runes to their closing counterparts
var quotePairs = map[rune]rune{
	'"':  '"',
	'\'': '\'',
	'“':  '”',
	'‘':  '’',
	'«':  '»',
	'`':  '`',
}

func stripWrappingQuotes(s string) string {
	runes := []rune(s)
	if len(runes) < 2 {
		return s
	}
	if close, ok := quotePairs[runes[0]]; ok && runes[len(runes)-1] == close {
		return string(runes[1 : len(runes)-1])
	}
	return s
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:limit-1]), " ")
	return cut + "…"
}

// Validate reports whether clean text is acceptable to post. Rejections are
// not errors: callers discard the candidate output and may retry generation.
func Validate(text string) bool {
	if text == "" {
		return false
	}
	if utf8.RuneCountInString(text) > SoftLengthLimit {
		return false
	}

	runes := []rune(text)
	for i, r := range runes {
		switch r {
		case '"', '“', '”', '«', '»', '#', ',', ';', '`':
			return false
		case '\'', '’':
			// Apostrophes are allowed only inside a contraction
			if i == 0 || i == len(runes)-1 ||
				!unicode.IsLetter(runes[i-1]) || !unicode.IsLetter(runes[i+1]) {
				return false
			}
		}
	}

	// "http" may appear only as part of a well-formed URL
	for _, token := range strings.Fields(text) {
		if strings.Contains(token, "http") && !wellFormedURL(token) {
			return false
		}
	}

	// No terminal sentence punctuation
	switch runes[len(runes)-1] {
	case '.', '!', '?', '…':
		return false
	}

	// A single sentence only, with URLs ignored
	stripped := urlRe.ReplaceAllString(text, "")
	return !sentenceRe.MatchString(stripped)
}

func wellFormedURL(token string) bool {
	u, err := url.Parse(token)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.Contains(u.Host, ".")
}
