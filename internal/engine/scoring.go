package engine

import "math"

// ScoreBreakdown itemizes a correct guess so the client can show how the
// number came together.
type ScoreBreakdown struct {
	Base              int
	SpeedBonus        int
	EfficiencyPenalty int
	FirstTryBonus     int
	SimilarityBonus   int
	Total             int
}

const scoreBase = 100

// Score computes the round score for a correct guess. timeRemaining is whole
// seconds left on the clock, guessCount includes the guess being scored, and
// similarity comes from the verifier in [0,1].
func Score(timeRemaining, guessCount int, similarity float64) ScoreBreakdown {
	b := ScoreBreakdown{Base: scoreBase}

	if timeRemaining > 0 {
		b.SpeedBonus = timeRemaining
	}

	b.EfficiencyPenalty = (guessCount - 1) * 10
	if b.EfficiencyPenalty > 50 {
		b.EfficiencyPenalty = 50
	}
	if b.EfficiencyPenalty < 0 {
		b.EfficiencyPenalty = 0
	}

	if guessCount == 1 {
		b.FirstTryBonus = 100
	}

	b.SimilarityBonus = int(math.Floor(similarity * 50))

	b.Total = b.Base + b.SpeedBonus - b.EfficiencyPenalty + b.FirstTryBonus + b.SimilarityBonus
	return b
}

// SearcherBonus is the collaboration award granted to the searcher each time a
// guesser gets the topic.
func SearcherBonus(timeRemaining int) int {
	if timeRemaining < 0 {
		return 0
	}
	return timeRemaining / 2
}
