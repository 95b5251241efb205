package engine

import (
	"math/rand"
	"strings"
	"time"
)

type Role string

const (
	RoleNone     Role = ""
	RoleSearcher Role = "searcher"
	RoleGuesser  Role = "guesser"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusInGame   Status = "in_game"
	StatusFinished Status = "finished"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// EndReason records which of the mutually exclusive round-end causes won.
type EndReason string

const (
	EndTimeExpired  EndReason = "time_expired"
	EndAllCorrect   EndReason = "success"
	EndManual       EndReason = "manual"
	EndSearcherLeft EndReason = "searcher_left"
)

// Player is owned exclusively by its room; nothing outside the room goroutine
// may hold a reference across calls.
type Player struct {
	ID               string
	Name             string
	Role             Role
	Score            int
	Connected        bool
	GuessCount       int
	GuessedCorrectly bool
}

type GameConfig struct {
	Difficulty   string
	RoundCount   int
	RoundSeconds int
}

// Round is one timed play cycle. A finished round is never mutated back to
// active; the next round replaces it.
type Round struct {
	Number           int
	Topic            string
	Forbidden        []string
	UsedTerms        map[string]bool
	StartTime        time.Time
	TimeLimit        time.Duration
	LastResultSentAt time.Time
	ResultCooldown   time.Duration
	Active           bool
}

// AssignRoles shuffles ids uniformly and picks the first as searcher. The
// returned slice is a fresh permutation; ids is left untouched.
func AssignRoles(ids []string, rnd *rand.Rand) (searcherID string, order []string) {
	order = make([]string, len(ids))
	copy(order, ids)
	rnd.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	if len(order) > 0 {
		searcherID = order[0]
	}
	return searcherID, order
}

// TimeRemaining reports seconds left in the round, floored at zero.
func TimeRemaining(now time.Time, r Round) time.Duration {
	rem := r.TimeLimit - now.Sub(r.StartTime)
	if rem < 0 {
		return 0
	}
	return rem
}

// CooldownRemaining reports how long the searcher must still wait before
// sending another result. Zero time means no result was ever sent, so no
// cooldown applies.
func CooldownRemaining(now time.Time, r Round) time.Duration {
	if r.LastResultSentAt.IsZero() {
		return 0
	}
	rem := r.ResultCooldown - now.Sub(r.LastResultSentAt)
	if rem < 0 {
		return 0
	}
	return rem
}

// Expired reports whether the wall clock has run past the round's time limit.
func Expired(now time.Time, r Round) bool {
	return now.Sub(r.StartTime) >= r.TimeLimit
}

// AbsorbQueryTerms folds the words of an accepted query into the round's used
// vocabulary. Words of one or two characters are too common to ban.
func AbsorbQueryTerms(r *Round, query string) {
	if r.UsedTerms == nil {
		r.UsedTerms = make(map[string]bool)
	}
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > 2 {
			r.UsedTerms[w] = true
		}
	}
}

// UsedTermList returns the round's accumulated vocabulary for validation.
func UsedTermList(r Round) []string {
	terms := make([]string, 0, len(r.UsedTerms))
	for t := range r.UsedTerms {
		terms = append(terms, t)
	}
	return terms
}
