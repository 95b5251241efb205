package collab

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/classified-intel/backend/pkg/types"
)

const redactedMark = "[REDACTED]"

// RegexRedactor is the local fallback: whole-word, case-insensitive
// replacement of the topic, the forbidden terms, and the query words. It
// cannot fail.
type RegexRedactor struct{}

func (RegexRedactor) Redact(_ context.Context, results []types.SearchResult, forbidden []string, query, topic string) []types.SearchResult {
	pattern := redactionPattern(forbidden, query, topic)
	if pattern == nil {
		out := make([]types.SearchResult, len(results))
		copy(out, results)
		return out
	}

	redacted := make([]types.SearchResult, 0, len(results))
	for _, r := range results {
		r.Title = pattern.ReplaceAllString(r.Title, redactedMark)
		r.Snippet = pattern.ReplaceAllString(r.Snippet, redactedMark)
		redacted = append(redacted, r)
	}
	return redacted
}

// redactionPattern compiles one alternation over every word worth hiding.
// Words of one or two characters stay visible; stripping articles and
// prepositions would wreck the remaining context clues.
func redactionPattern(forbidden []string, query, topic string) *regexp.Regexp {
	words := make(map[string]bool)
	for _, w := range forbidden {
		words[strings.ToLower(w)] = true
	}
	for _, w := range strings.Fields(strings.ToLower(query)) {
		words[w] = true
	}
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		words[w] = true
	}

	escaped := make([]string, 0, len(words))
	for w := range words {
		if len(w) > 2 {
			escaped = append(escaped, regexp.QuoteMeta(w))
		}
	}
	if len(escaped) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

// FallibleRedactor is a redaction backend that may fail, unlike Redactor.
// ChainRedactor absorbs the failure.
type FallibleRedactor interface {
	Redact(ctx context.Context, results []types.SearchResult, forbidden []string, query, topic string) ([]types.SearchResult, error)
}

// ChainRedactor tries a primary backend and falls through to the regex
// fallback when the primary errors or is absent. Callers never see a failure,
// which keeps the round state machine free of backend branching.
type ChainRedactor struct {
	Primary  FallibleRedactor
	Fallback RegexRedactor
	Log      *zap.Logger
}

func (c ChainRedactor) Redact(ctx context.Context, results []types.SearchResult, forbidden []string, query, topic string) []types.SearchResult {
	if c.Primary != nil {
		out, err := c.Primary.Redact(ctx, results, forbidden, query, topic)
		if err == nil {
			return out
		}
		if c.Log != nil {
			c.Log.Warn("primary redactor failed, using regex fallback", zap.Error(err))
		}
	}
	return c.Fallback.Redact(ctx, results, forbidden, query, topic)
}

// ValidateForbidden checks text against the forbidden list: whole-word,
// case-insensitive. Pure and local, so it runs synchronously inside the room.
func ValidateForbidden(text string, forbidden []string) (bool, []string) {
	lower := strings.ToLower(text)
	var violations []string
	for _, term := range forbidden {
		t := strings.ToLower(term)
		if t == "" {
			continue
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(t) + `\b`)
		if re.MatchString(lower) {
			violations = append(violations, t)
		}
	}
	return len(violations) == 0, violations
}
