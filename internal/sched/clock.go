package sched

import (
	"sync"
	"time"
)

// Clock supplies the current time to a Scheduler.
type Clock interface {
	Now() time.Time
}

// WallClock reads real elapsed time and ignores simulation pause or scaling.
type WallClock struct{}

func (WallClock) Now() time.Time {
	return time.Now()
}

// ManualClock only moves when told to. Used by the headless runner's game
// clock and by tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock starting at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
