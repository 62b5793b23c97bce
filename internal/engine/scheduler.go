package engine

import (
	"log/slog"

	"github.com/roach88/callq/internal/queue"
)

// Scheduler decides when a call may reach the transport and when its reply
// may be processed.
//
// Contract: at most one synchronous call is in flight at any time. While it
// is outstanding no other call reaches the transport, and asynchronous
// replies that arrive are buffered rather than processed.
//
// sendQueue and recvQueue exist only to serialize synchronous calls against
// everything else; both are empty in steady state. Synchronous entries are
// pushed to both queues in issuance order, so the earliest synchronous entry
// of one queue is always the earliest of the other.
//
// Loop-only: not safe for concurrent use.
type Scheduler struct {
	sendQueue *queue.Bounded[*Request]
	recvQueue *queue.Bounded[*Request]

	submit  func(*Request)
	process func(*Request)
	logger  *slog.Logger
}

// NewScheduler creates a scheduler whose queues hold capacity requests.
// submit hands a request to the transport; process handles its reply.
func NewScheduler(capacity int, submit, process func(*Request), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		sendQueue: queue.New[*Request](capacity),
		recvQueue: queue.New[*Request](capacity),
		submit:    submit,
		process:   process,
		logger:    logger,
	}
}

// Prepare reports whether r may be submitted now. When it returns false, r
// has been queued and will be submitted by a later Complete.
func (s *Scheduler) Prepare(r *Request) (bool, error) {
	if r.IsSynchronous() {
		// Check both queues first so a failed push never leaves r in one only.
		if s.sendQueue.IsFull() || s.recvQueue.IsFull() {
			return false, NewOverflowError(r.ID, "", -1,
				&queue.OverflowError{Capacity: s.sendQueue.Cap()})
		}
		wasIdle := s.sendQueue.IsEmpty()
		_, _ = s.sendQueue.Push(r)
		_, _ = s.recvQueue.Push(r)
		return wasIdle, nil
	}

	if s.sendQueue.IsEmpty() {
		return true, nil
	}
	if _, err := s.sendQueue.Push(r); err != nil {
		return false, NewOverflowError(r.ID, "", -1, err)
	}
	s.logger.Debug("call waiting behind synchronous call", "request", r.ID)
	return false, nil
}

// Complete is the transport completion notification for r.
func (s *Scheduler) Complete(r *Request) error {
	if r.aborted {
		return nil
	}

	if !r.IsSynchronous() {
		if s.sendQueue.IsEmpty() {
			s.process(r)
			return nil
		}
		if _, err := s.recvQueue.Push(r); err != nil {
			return NewOverflowError(r.ID, "", -1, err)
		}
		s.logger.Debug("reply deferred behind synchronous call", "request", r.ID)
		return nil
	}

	s.process(r)

	// Processing may have aborted r, in which case Abort already released
	// exclusivity and the heads belong to the next holder.
	if head, ok := s.sendQueue.Peek(); !ok || head != r {
		return nil
	}
	s.sendQueue.Pop()
	s.recvQueue.Pop()
	s.release()
	return nil
}

// Abort discards r's scheduling state. An aborted synchronous holder gives up
// exclusivity immediately; other aborted entries are skipped when reached.
func (s *Scheduler) Abort(r *Request) {
	if !r.IsSynchronous() {
		return
	}
	head, ok := s.sendQueue.Peek()
	if !ok || head != r {
		return
	}
	s.sendQueue.Pop()
	s.recvQueue.Pop()
	s.release()
}

// Outstanding returns the send and receive queue lengths.
func (s *Scheduler) Outstanding() (send, recv int) {
	return s.sendQueue.Len(), s.recvQueue.Len()
}

// release runs after the synchronous holder left both queues: replay
// deferred async replies, submit waiting async calls, then hand exclusivity
// to the next synchronous call.
func (s *Scheduler) release() {
	for {
		for {
			next, ok := s.recvQueue.Peek()
			if !ok || next.IsSynchronous() {
				break
			}
			s.recvQueue.Pop()
			if !next.aborted {
				s.process(next)
			}
		}

		for {
			next, ok := s.sendQueue.Peek()
			if !ok || next.IsSynchronous() {
				break
			}
			s.sendQueue.Pop()
			if !next.aborted {
				s.submit(next)
			}
		}

		holder, ok := s.sendQueue.Peek()
		if !ok {
			return
		}
		if !holder.aborted {
			s.submit(holder)
			return
		}

		// The next synchronous call was aborted while waiting. It heads
		// both queues; drop it and keep draining.
		s.sendQueue.Pop()
		s.recvQueue.Pop()
	}
}
