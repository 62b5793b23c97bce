package engine

import "sync/atomic"

// Sequencer stamps observed events with a strictly increasing number, so
// journal rows order by what the loop did rather than by wall clock.
//
// Safe for concurrent use, although only the loop calls Next.
type Sequencer struct {
	seq atomic.Int64
}

// NewSequencer creates a sequencer whose first Next returns start+1.
// A journal reopened for append resumes from its last stored number.
func NewSequencer(start int64) *Sequencer {
	s := &Sequencer{}
	s.seq.Store(start)
	return s
}

// Next returns the next number.
func (s *Sequencer) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last number handed out.
func (s *Sequencer) Current() int64 {
	return s.seq.Load()
}
