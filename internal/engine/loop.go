package engine

import (
	"context"
	"sync"
)

// Loop is the single goroutine on which every engine, scheduler and
// processor method runs.
//
// Transport completions, timer firings and public API calls are all posted
// as tasks and executed one at a time in post order, so engine state needs
// no locking. Tasks must not block.
//
// Submit is the only method safe to call from any goroutine.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // buffered, size 1
}

// NewLoop creates an idle loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		tasks:  make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Submit appends task to the loop. Returns false once the loop is stopped.
func (l *Loop) Submit(task func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, task)

	// Coalesce: one pending signal is enough to wake Run.
	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

// next pops the front task without blocking.
func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}
	task := l.tasks[0]
	l.tasks[0] = nil
	if len(l.tasks) == 1 {
		l.tasks = l.tasks[:0]
	} else {
		l.tasks = l.tasks[1:]
	}
	return task, true
}

// Run executes tasks until ctx is cancelled or Stop is called and the
// remaining tasks have drained.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			task, ok := l.next()
			if !ok {
				break
			}
			task()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, open := <-l.signal:
			if !open {
				l.drain()
				return nil
			}
		}
	}
}

// RunPending executes queued tasks, including any they post, until the loop
// is empty. For callers that drive the loop themselves, such as tests and
// the scenario harness.
func (l *Loop) RunPending() int {
	n := 0
	for {
		task, ok := l.next()
		if !ok {
			return n
		}
		task()
		n++
	}
}

func (l *Loop) drain() {
	for {
		task, ok := l.next()
		if !ok {
			return
		}
		task()
	}
}

// Stop refuses further tasks and lets Run return after draining.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.signal)
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}
