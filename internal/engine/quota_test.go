package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQuotaEnforcer_WithinLimit tests normal operation within quota.
func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(10)

	for i := 0; i < 10; i++ {
		err := q.Check("session-1")
		assert.NoError(t, err, "iteration %d should be allowed", i+1)
	}

	assert.Equal(t, 10, q.Current())
	assert.Equal(t, 10, q.MaxIterations())
}

// TestQuotaEnforcer_ExceedsLimit tests quota exceeded error.
func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(5)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Check("session-1"))
	}

	err := q.Check("session-1")
	require.Error(t, err)

	var ie *IterationsExceededError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "session-1", ie.SessionID)
	assert.Equal(t, 6, ie.Iterations)
	assert.Equal(t, 5, ie.Limit)
	assert.Contains(t, err.Error(), "6 iterations > 5 limit")
}

// TestQuotaEnforcer_Reset tests resetting the counter.
func TestQuotaEnforcer_Reset(t *testing.T) {
	q := NewQuotaEnforcer(5)
	for i := 0; i < 5; i++ {
		_ = q.Check("session-1")
	}
	assert.Equal(t, 5, q.Current())

	q.Reset()
	assert.Equal(t, 0, q.Current())
	assert.NoError(t, q.Check("session-1"))
}

// TestQuotaEnforcer_ZeroLimit tests that a zero quota rejects the first iteration.
func TestQuotaEnforcer_ZeroLimit(t *testing.T) {
	q := NewQuotaEnforcer(0)
	assert.True(t, IsIterationsExceededError(q.Check("session-1")))
}

// TestIsBudgetExceeded_Wrapped tests matching through wrapping.
func TestIsBudgetExceeded_Wrapped(t *testing.T) {
	q := NewQuotaEnforcer(0)
	err := fmt.Errorf("rewrite unit top: %w", q.Check("session-1"))
	assert.True(t, IsBudgetExceeded(err))
	assert.False(t, IsBudgetExceeded(fmt.Errorf("plain")))
}
