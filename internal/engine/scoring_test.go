package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_FirstTryWithTimeLeft(t *testing.T) {
	b := Score(45, 1, 0.8)

	assert.Equal(t, 100, b.Base)
	assert.Equal(t, 45, b.SpeedBonus)
	assert.Equal(t, 0, b.EfficiencyPenalty)
	assert.Equal(t, 100, b.FirstTryBonus)
	assert.Equal(t, 40, b.SimilarityBonus)
	assert.Equal(t, 285, b.Total)
}

func TestScore_ManyGuessesAtTheBuzzer(t *testing.T) {
	b := Score(0, 6, 0.8)

	assert.Equal(t, 0, b.SpeedBonus)
	assert.Equal(t, 50, b.EfficiencyPenalty, "penalty caps at 50")
	assert.Equal(t, 0, b.FirstTryBonus)
	assert.Equal(t, 90, b.Total)
}

func TestScore_PenaltyCapsBeyondSixGuesses(t *testing.T) {
	assert.Equal(t, Score(30, 6, 0).Total, Score(30, 20, 0).Total)
}

func TestScore_SimilarityFloors(t *testing.T) {
	// 0.99 * 50 = 49.5 floors to 49, never rounds up.
	assert.Equal(t, 49, Score(0, 2, 0.99).SimilarityBonus)
	assert.Equal(t, 50, Score(0, 2, 1.0).SimilarityBonus)
	assert.Equal(t, 0, Score(0, 2, 0).SimilarityBonus)
}

func TestSearcherBonus(t *testing.T) {
	assert.Equal(t, 22, SearcherBonus(45))
	assert.Equal(t, 0, SearcherBonus(0))
	assert.Equal(t, 0, SearcherBonus(-5))
}
