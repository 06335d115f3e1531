package testutil

import "sync"

// DeterministicClock hands out event timestamps for test fixtures.
//
// Timestamps start at Base and grow by Step, so the same fixture built twice
// produces byte-identical stores and golden output.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	base uint64
	step uint64
	n    uint64
}

// NewDeterministicClock creates a clock whose first Next() returns base+step.
// A zero step is treated as 1.
func NewDeterministicClock(base, step uint64) *DeterministicClock {
	if step == 0 {
		step = 1
	}
	return &DeterministicClock{base: base, step: step}
}

// Next advances the clock and returns the new timestamp.
func (c *DeterministicClock) Next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.base + c.n*c.step
}

// Current returns the last timestamp handed out, or base if none.
func (c *DeterministicClock) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base + c.n*c.step
}

// Reset rewinds the clock to base.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
