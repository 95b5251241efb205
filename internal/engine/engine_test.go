package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignRoles_PicksExactlyOneSearcher(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	rnd := rand.New(rand.NewSource(7))

	searcher, order := AssignRoles(ids, rnd)

	require.Len(t, order, len(ids))
	assert.Equal(t, order[0], searcher)
	assert.ElementsMatch(t, ids, order)
	// Input untouched.
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestAssignRoles_Empty(t *testing.T) {
	searcher, order := AssignRoles(nil, rand.New(rand.NewSource(1)))
	assert.Empty(t, searcher)
	assert.Empty(t, order)
}

func TestTimeRemaining_FloorsAtZero(t *testing.T) {
	start := time.Now()
	r := Round{StartTime: start, TimeLimit: 10 * time.Second}

	assert.Equal(t, 10*time.Second, TimeRemaining(start, r))
	assert.Equal(t, 4*time.Second, TimeRemaining(start.Add(6*time.Second), r))
	assert.Equal(t, time.Duration(0), TimeRemaining(start.Add(time.Minute), r))
}

func TestExpired(t *testing.T) {
	start := time.Now()
	r := Round{StartTime: start, TimeLimit: 10 * time.Second}

	assert.False(t, Expired(start.Add(9*time.Second), r))
	assert.True(t, Expired(start.Add(10*time.Second), r))
	assert.True(t, Expired(start.Add(time.Hour), r))
}

func TestCooldownRemaining_NoResultSentYet(t *testing.T) {
	r := Round{ResultCooldown: 30 * time.Second}
	assert.Equal(t, time.Duration(0), CooldownRemaining(time.Now(), r))
}

func TestCooldownRemaining_Counting(t *testing.T) {
	sent := time.Now()
	r := Round{LastResultSentAt: sent, ResultCooldown: 30 * time.Second}

	assert.Equal(t, 20*time.Second, CooldownRemaining(sent.Add(10*time.Second), r))
	assert.Equal(t, time.Duration(0), CooldownRemaining(sent.Add(30*time.Second), r))
	assert.Equal(t, time.Duration(0), CooldownRemaining(sent.Add(time.Minute), r))
}

func TestAbsorbQueryTerms_SkipsShortWords(t *testing.T) {
	var r Round
	AbsorbQueryTerms(&r, "A la Famous Landmark in EU")

	assert.True(t, r.UsedTerms["famous"])
	assert.True(t, r.UsedTerms["landmark"])
	assert.False(t, r.UsedTerms["a"])
	assert.False(t, r.UsedTerms["la"])
	assert.False(t, r.UsedTerms["in"])
	assert.False(t, r.UsedTerms["eu"])
}

func TestUsedTermList(t *testing.T) {
	var r Round
	AbsorbQueryTerms(&r, "tall iron structure")
	AbsorbQueryTerms(&r, "iron monument")

	assert.ElementsMatch(t, []string{"tall", "iron", "structure", "monument"}, UsedTermList(r))
}
