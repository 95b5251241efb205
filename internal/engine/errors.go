package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Every failure surfaced to a player maps onto one of these sentinels. They are
// recoverable and scoped to the caller; none of them tears down a room.
var (
	ErrNotFound                = errors.New("not found")
	ErrForbidden               = errors.New("action not allowed for role")
	ErrInvalidState            = errors.New("action invalid in current state")
	ErrGameInProgress          = errors.New("game already in progress")
	ErrRateLimited             = errors.New("cooldown active")
	ErrAlreadySatisfied        = errors.New("already satisfied")
	ErrValidationFailed        = errors.New("query contains forbidden terms")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrNotEnoughPlayers        = errors.New("need at least two players")
	ErrStaleCommit             = errors.New("round changed since validation")
)

// ValidationError carries the offending terms alongside ErrValidationFailed.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("query contains forbidden terms: %s", strings.Join(e.Violations, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// CooldownError reports the remaining wait alongside ErrRateLimited.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, wait %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool { return target == ErrRateLimited }
