// Package collab wraps the external collaborators the game consumes: web
// search, redaction, guess verification, and topic supply. Each concern is an
// interface with a local fallback so gameplay degrades instead of halting when
// a richer backend is missing or down.
package collab

import (
	"context"

	"github.com/classified-intel/backend/pkg/types"
)

// Searcher performs a side-effect-free web search. An empty result list is a
// valid answer, not an error.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)
}

// Redactor replaces sensitive spans in results before guessers see them. It
// must never fail the caller; implementations fall back to local regex
// redaction on any upstream error.
type Redactor interface {
	Redact(ctx context.Context, results []types.SearchResult, forbidden []string, query, topic string) []types.SearchResult
}

// Verdict is the verifier's judgement of one guess.
type Verdict struct {
	Correct    bool
	Similarity float64
}

// Verifier decides whether a guess matches the secret topic.
type Verifier interface {
	Verify(ctx context.Context, guess, topic string) (Verdict, error)
}

// TopicProvider supplies candidate topics with their forbidden-term sets.
type TopicProvider interface {
	Topics(n int) []types.TopicOption
}
