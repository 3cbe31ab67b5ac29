package command

import "sync/atomic"

// Clock is a monotonic logical clock. Every executed command is stamped
// with the next value so traces order identically across runs.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
