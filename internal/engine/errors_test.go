package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_IsValidationFailed(t *testing.T) {
	var err error = &ValidationError{Violations: []string{"eiffel", "tower"}}

	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.Contains(t, err.Error(), "eiffel")

	var v *ValidationError
	assert.True(t, errors.As(err, &v))
	assert.Equal(t, []string{"eiffel", "tower"}, v.Violations)
}

func TestCooldownError_IsRateLimited(t *testing.T) {
	var err error = &CooldownError{Remaining: 12 * time.Second}

	assert.True(t, errors.Is(err, ErrRateLimited))

	var c *CooldownError
	assert.True(t, errors.As(err, &c))
	assert.Equal(t, 12*time.Second, c.Remaining)
}
