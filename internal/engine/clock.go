package engine

import "sync/atomic"

// Clock hands out the logical seq numbers that order chunks within a
// session. The first call to Next returns 1.
//
// Thread-safety: safe for concurrent use, although only the goroutine that
// feeds the decoder calls Next in practice.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that continues after start. Used to resume a
// stored session without reusing seq numbers.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
