package common

import (
	"sync/atomic"
	"time"
)

// Clock exposes the ledger's monotonic time in seconds.
type Clock interface {
	Now() uint64
}

// SystemClock reads wall-clock time and never moves backwards.
type SystemClock struct {
	last atomic.Uint64
}

func (c *SystemClock) Now() uint64 {
	now := uint64(time.Now().Unix())
	for {
		prev := c.last.Load()
		if now <= prev {
			return prev
		}
		if c.last.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// ManualClock is advanced explicitly; tests and replays use it.
type ManualClock struct {
	now atomic.Uint64
}

// NewManualClock starts the clock at the supplied second.
func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(start)
	return c
}

func (c *ManualClock) Now() uint64 { return c.now.Load() }

// Advance moves the clock forward by the given number of seconds.
func (c *ManualClock) Advance(seconds uint64) uint64 {
	return c.now.Add(seconds)
}

// Set moves the clock to ts when ts is ahead of the current reading.
func (c *ManualClock) Set(ts uint64) {
	for {
		prev := c.now.Load()
		if ts <= prev || c.now.CompareAndSwap(prev, ts) {
			return
		}
	}
}
