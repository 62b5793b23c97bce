// Package store provides the SQLite-backed call journal.
//
// The journal is an append-only log of engine events: calls issued, sent,
// retried, deferred and completed, and every command dispatched, skipped or
// halted. It exists for diagnostics ("callq trace"); nothing is ever replayed
// from it into a live command queue.
//
// # Ordering
//
// Rows are ordered by seq, the engine's event sequence number, NEVER by
// wall-clock time. All queries use ORDER BY seq ASC. A journal reopened for
// append resumes numbering after LastSeq.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
