package engine

import "sync/atomic"

// Sequencer hands out the seq stamped on each recorded notification.
// Successive calls must return strictly increasing values.
type Sequencer interface {
	Next() int64
}

// Clock is the default Sequencer: a logical clock starting after a given
// seq. It is safe for concurrent use, though Run calls it from one loop.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first seq is 1.
func NewClock() *Clock { return NewClockAt(0) }

// NewClockAt returns a clock whose first seq is start+1, for appending to
// a stored trace that ends at start.
func NewClockAt(start int64) *Clock {
	c := new(Clock)
	c.last.Store(start)
	return c
}

// Next advances the clock.
func (c *Clock) Next() int64 { return c.last.Add(1) }
