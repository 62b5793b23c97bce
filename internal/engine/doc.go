// Package engine implements the callq call engine.
//
// The engine drives request/response cycles against a page server and
// replays each reply as an ordered queue of UI-mutation commands.
//
// ARCHITECTURE:
//
// Single-Goroutine Loop:
// Every engine, scheduler and processor method runs on one goroutine (Loop).
// Transport completions, timer firings and dialog answers are posted to the
// loop and run to completion one at a time, so no state is locked. The only
// suspension points are:
// - a transport completion
// - a timer firing (response delay, expiration, queue wakeup)
// - a user answer to a dialog
//
// Call Flow:
// 1. IssueCall builds a Request from the configuration and call options
// 2. Scheduler.Prepare decides whether it may reach the transport now
// 3. The transport reports the reply; Scheduler.Complete decides whether it
//    may be processed now or must wait behind a synchronous call
// 4. Processor.ProcessCommands turns the reply into a CommandQueue ending
//    with the response.complete sentinel, and drains it through the Registry
// 5. The sentinel runs the request's completion cleanup
//
// ORDERING:
//
// Synchronous calls are mutually exclusive and observed in issuance order:
// each one's reply is fully processed before the next synchronous call is
// sent, and asynchronous replies arriving meanwhile are deferred. Within one
// command queue, drain order is enqueue order except where a handler
// re-offers a command (PushFront) or a confirmation skips ahead.
package engine
