package collab

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// ExactVerifier is the local fallback when no semantic oracle is configured:
// case-insensitive exact or substring comparison, similarity pinned to 1 or 0.
type ExactVerifier struct{}

func (ExactVerifier) Verify(_ context.Context, guess, topic string) (Verdict, error) {
	g := strings.ToLower(strings.TrimSpace(guess))
	t := strings.ToLower(strings.TrimSpace(topic))
	if g == "" || t == "" {
		return Verdict{}, nil
	}
	correct := g == t || strings.Contains(t, g) || strings.Contains(g, t)
	v := Verdict{Correct: correct}
	if correct {
		v.Similarity = 1.0
	}
	return v, nil
}

// ChainVerifier consults a primary semantic verifier and falls back to exact
// matching when it errors or times out.
type ChainVerifier struct {
	Primary  Verifier
	Fallback ExactVerifier
	Log      *zap.Logger
}

func (c ChainVerifier) Verify(ctx context.Context, guess, topic string) (Verdict, error) {
	if c.Primary != nil {
		v, err := c.Primary.Verify(ctx, guess, topic)
		if err == nil {
			return clampVerdict(v), nil
		}
		if c.Log != nil {
			c.Log.Warn("primary verifier failed, using exact fallback", zap.Error(err))
		}
	}
	return c.Fallback.Verify(ctx, guess, topic)
}

func clampVerdict(v Verdict) Verdict {
	if v.Similarity < 0 {
		v.Similarity = 0
	}
	if v.Similarity > 1 {
		v.Similarity = 1
	}
	return v
}
