// Package clock abstracts wall-clock timers so that every timer callback runs
// on the engine loop, and so tests can substitute a manual clock.
package clock

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. Returns false if the timer
	// already fired or was already stopped.
	Stop() bool
}

// Clock schedules callbacks after a delay.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Poster accepts work to run on the engine loop goroutine.
// Implemented by engine.Loop.
type Poster interface {
	Submit(task func()) bool
}

// loopClock fires timers by posting the callback onto a loop.
type loopClock struct {
	poster Poster
}

// OnLoop returns a Clock backed by time.AfterFunc whose callbacks are posted
// to poster instead of running on the runtime timer goroutine.
func OnLoop(poster Poster) Clock {
	return loopClock{poster: poster}
}

// AfterFunc implements Clock.
func (c loopClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		c.poster.Submit(func() {
			// Stop may have raced with the post; honour it on the loop.
			if t.stopped {
				return
			}
			t.fired = true
			f()
		})
	})
	return t
}

// loopTimer is only touched from the loop goroutine after creation.
type loopTimer struct {
	timer   *time.Timer
	stopped bool
	fired   bool
}

// Stop implements Timer.
func (t *loopTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}
