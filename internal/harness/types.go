package harness

import (
	"fmt"

	"github.com/roach88/callq/internal/engine"
)

// TraceEvent is one engine event as seen by a scenario.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Kind     string `json:"kind"`
	Request  string `json:"request"`
	Command  string `json:"command,omitempty"`
	Sequence int    `json:"sequence,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

func traceEvent(e engine.Event) TraceEvent {
	return TraceEvent{
		Seq:      e.Seq,
		Kind:     string(e.Kind),
		Request:  e.RequestID,
		Command:  e.Command,
		Sequence: e.Sequence,
		Detail:   e.Detail,
	}
}

// Line renders the event the way expect_trace spells it.
func (e TraceEvent) Line() string {
	line := e.Kind + " " + e.Request
	if e.Command != "" {
		line += fmt.Sprintf(" %s#%d", e.Command, e.Sequence)
	}
	return line
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Trace holds every engine event in seq order.
	Trace []TraceEvent `json:"trace"`

	// Alerts holds "title: message" for every alert shown.
	Alerts []string `json:"alerts,omitempty"`

	// DOM is the final attribute state of every node.
	DOM map[string]map[string]string `json:"dom,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failed expectation.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Lines renders the whole trace.
func (r *Result) Lines() []string {
	lines := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		lines[i] = e.Line()
	}
	return lines
}

// traceRecorder is the engine observer feeding Result.Trace.
type traceRecorder struct {
	result *Result
}

func (t *traceRecorder) Observe(e engine.Event) {
	t.result.Trace = append(t.result.Trace, traceEvent(e))
}
