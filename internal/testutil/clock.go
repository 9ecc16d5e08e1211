package testutil

import "sync/atomic"

// DeterministicClock hands out sequence numbers 1, 2, 3, ... It satisfies
// logicsyn.Clock, so a test run stamps the same seq values on its tuples no
// matter what the store already holds.
//
// Safe for concurrent use.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock returns a clock whose first Next is 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new value.
func (c *DeterministicClock) Next() int64 { return c.seq.Add(1) }

// Current returns the last value handed out, or 0.
func (c *DeterministicClock) Current() int64 { return c.seq.Load() }

// Reset rewinds the clock so the same scenario can run again with
// identical seq values.
func (c *DeterministicClock) Reset() { c.seq.Store(0) }
