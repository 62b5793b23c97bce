package engine

import (
	"encoding/json"
	"strconv"

	"github.com/roach88/callq/internal/clock"
	"github.com/roach88/callq/internal/ir"
	"github.com/roach88/callq/internal/queue"
)

// CompleteCommand is the sentinel appended to every command queue. Its
// handler runs the request's completion cleanup. It is never skipped.
const CompleteCommand = "response.complete"

// Node is an opaque reference to a UI node, produced by a NodeResolver.
type Node any

// Command is one queued instruction derived from a reply.
type Command struct {
	// Sequence is assigned monotonically per reply, starting at 0.
	Sequence int

	Name      string
	Args      map[string]any
	Component *ir.ComponentRef

	// Fields are the raw entry fields as decoded.
	Fields map[string]any

	// Target is resolved lazily, right before dispatch, because an earlier
	// command in the same queue may have created the node.
	Target Node

	Request *Request
	Queue   *CommandQueue

	// Description is attached by the registry at dispatch time.
	Description string

	// Retries is the remaining retry budget, seeded by the first Retry call.
	Retries int

	// Requeue is set by Retry when the handler should be re-offered.
	Requeue bool

	retriesSeeded bool
}

// ResetRetries clears the retry budget so the next Retry call seeds it again.
func (c *Command) ResetRetries() {
	c.Retries = 0
	c.retriesSeeded = false
	c.Requeue = false
}

// Arg returns a string argument, or "" if absent or not a string.
func (c *Command) Arg(key string) string {
	s, _ := c.Args[key].(string)
	return s
}

// IntArg returns an integer argument, or def if absent or not numeric.
// Decoded numbers may arrive as json.Number, float64 or numeric strings.
func (c *Command) IntArg(key string, def int) int {
	switch v := c.Args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (c *Command) requestID() string {
	if c.Request == nil {
		return ""
	}
	return c.Request.ID
}

// CommandQueue is a reply's bounded command list plus its pause state.
//
// INVARIANT: at most one wakeup timer is pending per queue.
type CommandQueue struct {
	items   *queue.Bounded[*Command]
	request *Request

	// Paused suspends the drain loop. Set by a handler that awaits an
	// external event; cleared by the next ProcessQueue call.
	Paused bool

	pendingTimer clock.Timer
	nextSeq      int

	proc *Processor
}

func newCommandQueue(r *Request, capacity int) *CommandQueue {
	return &CommandQueue{
		items:   queue.New[*Command](capacity),
		request: r,
	}
}

// Request returns the call that owns the queue.
func (q *CommandQueue) Request() *Request { return q.request }

// Len returns the number of undrained commands.
func (q *CommandQueue) Len() int { return q.items.Len() }

// Peek returns the next command without removing it.
func (q *CommandQueue) Peek() (*Command, bool) { return q.items.Peek() }

// PushFront re-offers cmd so it is the next command drained.
func (q *CommandQueue) PushFront(cmd *Command) error {
	if _, err := q.items.PushFront(cmd); err != nil {
		return NewOverflowError(cmd.requestID(), cmd.Name, cmd.Sequence, err)
	}
	return nil
}

// WakeupPending reports whether a wakeup timer is scheduled.
func (q *CommandQueue) WakeupPending() bool { return q.pendingTimer != nil }

func (q *CommandQueue) enqueue(entry ir.CommandEntry) error {
	cmd := &Command{
		Sequence:  q.nextSeq,
		Name:      entry.Name,
		Args:      entry.Args,
		Component: entry.Component,
		Fields:    entry.Fields,
		Request:   q.request,
		Queue:     q,
	}
	if _, err := q.items.Push(cmd); err != nil {
		return NewOverflowError(q.request.ID, cmd.Name, cmd.Sequence, err)
	}
	q.nextSeq++
	return nil
}

func (q *CommandQueue) pop() (*Command, bool) { return q.items.Pop() }

// finished reports whether the owning request was aborted or cleaned up.
func (q *CommandQueue) finished() bool {
	r := q.request
	return r != nil && (r.aborted || r.completed)
}

func (q *CommandQueue) cancelWakeup() {
	if q.pendingTimer != nil {
		q.pendingTimer.Stop()
		q.pendingTimer = nil
	}
}
