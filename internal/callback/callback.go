// Package callback implements the named lifecycle hooks attached to a call.
//
// A call's effective hooks are an ordered list of sets: the engine-wide
// (global) set first, then the call's local set. Firing an event fires it on
// every set in the list that defines a hook for it.
//
// Two events are timer-backed: ResponseDelay and Expiration. Executing them
// arms a timer instead of firing synchronously; ClearTimer cancels the
// pending firing once a faster terminal event (a reply) makes it obsolete.
package callback

import (
	"time"

	"github.com/roach88/callq/internal/clock"
)

// Event names a lifecycle hook.
type Event string

const (
	Prepare                  Event = "onPrepare"
	Request                  Event = "onRequest"
	ResponseDelay            Event = "onResponseDelay"
	Expiration               Event = "onExpiration"
	BeforeResponseProcessing Event = "beforeResponseProcessing"
	Failure                  Event = "onFailure"
	Redirect                 Event = "onRedirect"
	Success                  Event = "onSuccess"
	Complete                 Event = "onComplete"
)

// Events lists every hook in lifecycle order.
var Events = []Event{
	Prepare, Request, ResponseDelay, Expiration, BeforeResponseProcessing,
	Failure, Redirect, Success, Complete,
}

// Hook receives the payload of a fired event.
type Hook[P any] func(payload P)

// timerRecord backs a timer-driven hook.
type timerRecord struct {
	delay   time.Duration
	pending clock.Timer
}

// Set holds up to nine optional hooks plus the two timer records.
type Set[P any] struct {
	clock  clock.Clock
	hooks  map[Event]Hook[P]
	timers map[Event]*timerRecord
}

// New creates a set with armed-but-inactive timers for ResponseDelay and
// Expiration.
func New[P any](clk clock.Clock, responseDelay, expiration time.Duration) *Set[P] {
	return &Set[P]{
		clock: clk,
		hooks: make(map[Event]Hook[P]),
		timers: map[Event]*timerRecord{
			ResponseDelay: {delay: responseDelay},
			Expiration:    {delay: expiration},
		},
	}
}

// On installs (or replaces) the hook for event. A nil hook removes it.
// Returns the set for chaining.
func (s *Set[P]) On(event Event, hook Hook[P]) *Set[P] {
	if hook == nil {
		delete(s.hooks, event)
		return s
	}
	s.hooks[event] = hook
	return s
}

// Has reports whether a hook is defined for event.
func (s *Set[P]) Has(event Event) bool {
	_, ok := s.hooks[event]
	return ok
}

// Delay returns the timer delay configured for a timer-backed event.
func (s *Set[P]) Delay(event Event) (time.Duration, bool) {
	rec, ok := s.timers[event]
	if !ok {
		return 0, false
	}
	return rec.delay, true
}

// Pending reports whether a timer-backed hook is scheduled and not yet fired.
func (s *Set[P]) Pending(event Event) bool {
	rec, ok := s.timers[event]
	return ok && rec.pending != nil
}

// execute fires or schedules the hook for event.
func (s *Set[P]) execute(event Event, payload P) {
	hook, ok := s.hooks[event]
	if !ok {
		return
	}
	rec, timed := s.timers[event]
	if !timed {
		hook(payload)
		return
	}

	// At most one pending firing per hook.
	if rec.pending != nil {
		rec.pending.Stop()
	}
	var t clock.Timer
	t = s.clock.AfterFunc(rec.delay, func() {
		if rec.pending == t {
			rec.pending = nil
		}
		hook(payload)
	})
	rec.pending = t
}

// clearTimer cancels the pending firing of event, if any.
func (s *Set[P]) clearTimer(event Event) {
	rec, ok := s.timers[event]
	if !ok || rec.pending == nil {
		return
	}
	rec.pending.Stop()
	rec.pending = nil
}

// Execute fires event on every set in order. Nil sets are skipped.
func Execute[P any](sets []*Set[P], event Event, payload P) {
	for _, s := range sets {
		if s != nil {
			s.execute(event, payload)
		}
	}
}

// ClearTimer cancels event's pending timer on every set without firing it.
func ClearTimer[P any](sets []*Set[P], event Event) {
	for _, s := range sets {
		if s != nil {
			s.clearTimer(event)
		}
	}
}
