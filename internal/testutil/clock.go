package testutil

import (
	"sort"
	"time"

	"github.com/roach88/callq/internal/clock"
)

// ManualClock is a deterministic clock.Clock for tests.
//
// Timers never fire on their own. Advance moves virtual time forward and runs
// every due callback on the caller's goroutine, in deadline order (ties broken
// by scheduling order). A callback that schedules a new timer due within the
// advanced window is fired in the same Advance call.
//
// Thread-safety: NOT safe for concurrent use. It mirrors the engine loop,
// which is single-goroutine by construction.
type ManualClock struct {
	now    time.Duration
	nextID int64
	timers []*manualTimer
}

type manualTimer struct {
	id      int64
	when    time.Duration
	f       func()
	stopped bool
	fired   bool
}

// Stop implements clock.Timer.
func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewManualClock creates a clock at virtual time 0.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc implements clock.Clock.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	if d < 0 {
		d = 0
	}
	c.nextID++
	t := &manualTimer{id: c.nextID, when: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, firing due timers.
func (c *ManualClock) Advance(d time.Duration) {
	target := c.now + d
	for {
		t := c.nextDue(target)
		if t == nil {
			break
		}
		c.now = t.when
		t.fired = true
		t.f()
	}
	c.now = target
	c.compact()
}

// Now returns the elapsed virtual time.
func (c *ManualClock) Now() time.Duration {
	return c.now
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (c *ManualClock) Pending() int {
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *ManualClock) nextDue(target time.Duration) *manualTimer {
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.when <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].when != due[j].when {
			return due[i].when < due[j].when
		}
		return due[i].id < due[j].id
	})
	return due[0]
}

func (c *ManualClock) compact() {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.timers = live
}
