package engine

import (
	"time"

	"github.com/roach88/callq/internal/clock"
)

// Retry tracks a command's polling budget.
//
// The first call seeds cmd.Retries with maxAttempts; every call, the first
// included, consumes one attempt. Retry returns true ("retry") and sets
// cmd.Requeue while attempts remain, and false ("exhausted") once the budget
// would drop below 1. An exhausted command stays exhausted until
// ResetRetries.
//
// Retry only manages the counter. A handler that wants the same command
// retried must re-offer it itself:
//
//	if engine.Retry(cmd, 10) {
//	    if err := cmd.Queue.PushFront(cmd); err != nil {
//	        return err
//	    }
//	    cmd.Queue.SetWakeup(100 * time.Millisecond)
//	    return nil
//	}
//	// exhausted: give up gracefully
func Retry(cmd *Command, maxAttempts int) bool {
	if !cmd.retriesSeeded {
		cmd.Retries = maxAttempts
		cmd.retriesSeeded = true
	}
	cmd.Retries--
	if cmd.Retries < 1 {
		cmd.Retries = 0
		cmd.Requeue = false
		return false
	}
	cmd.Requeue = true
	return true
}

// SetWakeup pauses q and schedules a drain after delay, replacing any
// pending wakeup.
func (p *Processor) SetWakeup(q *CommandQueue, delay time.Duration) {
	q.cancelWakeup()
	q.Paused = true

	var t clock.Timer
	t = p.clock.AfterFunc(delay, func() {
		if q.pendingTimer != t {
			return
		}
		q.pendingTimer = nil
		// Failures are logged and handled by the drain loop itself.
		_ = p.ProcessQueue(q, 0)
	})
	q.pendingTimer = t
}

// SetWakeup pauses the queue and resumes it after delay.
func (q *CommandQueue) SetWakeup(delay time.Duration) {
	q.proc.SetWakeup(q, delay)
}

// Pause suspends the drain after the current command returns.
func (q *CommandQueue) Pause() {
	q.Paused = true
}

// Resume drains the queue again, skipping the next skip commands (the
// sentinel is never skipped).
func (q *CommandQueue) Resume(skip int) error {
	return q.proc.ProcessQueue(q, skip)
}
