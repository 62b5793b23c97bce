// Package queue provides a fixed-capacity circular FIFO used by the request
// scheduler and by every response command queue.
//
// A Bounded queue never grows. Push and PushFront fail with an OverflowError
// once Len() == Cap(); Pop and Peek on an empty queue report "no item" through
// their boolean result and never fail.
//
// Thread-safety: Bounded is NOT safe for concurrent use. Every queue in callq
// is owned by the engine loop goroutine, and a queue's start/count pair must
// never be mutated from two turns at once.
package queue

import (
	"errors"
	"fmt"
)

// ErrOverflow is matched (via errors.Is) by every OverflowError.
var ErrOverflow = errors.New("queue: capacity exceeded")

// OverflowError is returned when an item is pushed onto a full queue.
type OverflowError struct {
	Capacity int
}

// Error implements the error interface.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("queue: capacity exceeded (capacity=%d)", e.Capacity)
}

// Is reports whether target is ErrOverflow.
func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}

// Bounded is a circular buffer with a fixed capacity.
//
// INVARIANT: 0 <= count <= len(items).
type Bounded[T any] struct {
	items []T
	start int
	count int
}

// New creates an empty queue holding at most capacity items.
// A capacity below 1 is raised to 1.
func New[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[T]{items: make([]T, capacity)}
}

// Push appends item at the tail and returns the new item count.
func (q *Bounded[T]) Push(item T) (int, error) {
	if q.IsFull() {
		return q.count, &OverflowError{Capacity: len(q.items)}
	}
	q.items[(q.start+q.count)%len(q.items)] = item
	q.count++
	return q.count, nil
}

// PushFront inserts item before the current head, so the next Pop returns it.
// Used to re-offer a command that must be retried.
func (q *Bounded[T]) PushFront(item T) (int, error) {
	if q.IsFull() {
		return q.count, &OverflowError{Capacity: len(q.items)}
	}
	q.start = (q.start - 1 + len(q.items)) % len(q.items)
	q.items[q.start] = item
	q.count++
	return q.count, nil
}

// Pop removes and returns the head item.
// Returns (zero, false) if the queue is empty.
func (q *Bounded[T]) Pop() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}
	item := q.items[q.start]

	// Clear the slot so the queue does not pin popped items in memory.
	q.items[q.start] = zero

	q.start = (q.start + 1) % len(q.items)
	q.count--
	return item, true
}

// Peek returns the head item without removing it.
// Returns (zero, false) if the queue is empty.
func (q *Bounded[T]) Peek() (T, bool) {
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.items[q.start], true
}

// Len returns the number of queued items.
func (q *Bounded[T]) Len() int { return q.count }

// Cap returns the fixed capacity.
func (q *Bounded[T]) Cap() int { return len(q.items) }

// IsEmpty reports whether the queue holds no items.
func (q *Bounded[T]) IsEmpty() bool { return q.count == 0 }

// IsFull reports whether a push would overflow.
func (q *Bounded[T]) IsFull() bool { return q.count == len(q.items) }
