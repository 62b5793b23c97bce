// Package harness runs scripted call scenarios against the real engine.
//
// A scenario drives one engine through a fixed list of steps. Nothing
// runs on its own: the transport only answers when a reply step says so,
// timers only fire on advance, and dialogs only close on answer. Every
// engine event lands in the result trace, so two runs of the same scenario
// produce identical traces.
//
// # Scenario Format
//
//	name: confirm_then_assign
//	description: "declining a confirm skips the guarded commands"
//	config:
//	  retry: 2
//	dom:
//	  out: { innerHTML: "" }
//	components:
//	  list/3: row-3
//	steps:
//	  - issue: { function: save, mode: synchronous }
//	  - reply:
//	      request: req-1
//	      commands:
//	        - { name: dialog.confirm, args: { count: 1 } }
//	        - { name: node.assign, args: { id: out, attr: innerHTML, value: hi } }
//	  - answer: "no"
//	  - advance: 1s
//	expect_trace:
//	  - issued req-1
//	  - submitted req-1
//	assertions:
//	  - type: dom
//	    node: out
//	    attr: innerHTML
//	    value: ""
//
// Trace lines read "kind request" with " command#seq" appended for
// command events. Requests are named req-1, req-2, ... in issue order.
//
// # Assertion Types
//
//   - trace_contains: a line appears in the trace
//   - trace_order: lines appear in order, not necessarily adjacent
//   - trace_count: a line appears exactly count times
//   - dom: a node attribute holds value after the run
//   - alert: an alert with the given message was shown
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON trace with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
