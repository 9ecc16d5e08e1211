package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts saturation iterations within one run and enforces a
// maximum.
//
// Saturate schedules over non-terminating rule sets (associativity plus
// commutativity, say) never reach a fixpoint on their own; the quota is what
// ends them.
type QuotaEnforcer struct {
	maxIterations int
	current       int
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
func NewQuotaEnforcer(maxIterations int) *QuotaEnforcer {
	return &QuotaEnforcer{maxIterations: maxIterations}
}

// Check counts one iteration and validates it against the limit.
//
// Returns IterationsExceededError once the quota is used up. Call it before
// starting each iteration.
func (q *QuotaEnforcer) Check(sessionID string) error {
	q.current++
	if q.current > q.maxIterations {
		return &IterationsExceededError{
			SessionID:  sessionID,
			Iterations: q.current,
			Limit:      q.maxIterations,
		}
	}
	return nil
}

// Reset sets the counter back to 0. Each Run starts from a fresh quota.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the number of iterations counted so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxIterations returns the limit.
func (q *QuotaEnforcer) MaxIterations() int {
	return q.maxIterations
}

// IterationsExceededError is returned when a run exceeds its iteration quota.
type IterationsExceededError struct {
	SessionID  string
	Iterations int
	Limit      int
}

// Error implements the error interface.
func (e *IterationsExceededError) Error() string {
	return fmt.Sprintf("session %s exceeded iteration quota: %d iterations > %d limit",
		e.SessionID, e.Iterations, e.Limit)
}

// IsIterationsExceededError returns true if the error is an
// IterationsExceededError. Uses errors.As to handle wrapped errors.
func IsIterationsExceededError(err error) bool {
	var ie *IterationsExceededError
	return errors.As(err, &ie)
}
