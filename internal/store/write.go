package store

import (
	"context"
	"fmt"

	"github.com/roach88/callq/internal/engine"
)

// Record appends one event. The call row is created by the first event
// seen for its request; an "issued" event also records the function name.
// Re-recording an existing seq is silently ignored.
func (s *Store) Record(ctx context.Context, ev engine.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record event: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	function := ""
	if ev.Kind == engine.EventIssued {
		function = ev.Detail
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO calls (id, function, first_seq)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, ev.RequestID, function, ev.Seq); err != nil {
		return fmt.Errorf("record event: insert call: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO events (seq, request_id, kind, command, command_seq, detail)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`, ev.Seq, ev.RequestID, string(ev.Kind), ev.Command, ev.Sequence, ev.Detail); err != nil {
		return fmt.Errorf("record event: insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record event: commit: %w", err)
	}
	return nil
}

// Observe implements engine.Observer. A failed write is logged and counted;
// it never disturbs the engine.
func (s *Store) Observe(ev engine.Event) {
	if err := s.Record(context.Background(), ev); err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.dropped++
		s.mu.Unlock()
		s.logger.Error("journal write failed",
			"seq", ev.Seq,
			"kind", string(ev.Kind),
			"request", ev.RequestID,
			"error", err,
		)
	}
}

// Dropped returns how many events Observe failed to write, and the last
// failure.
func (s *Store) Dropped() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped, s.lastErr
}
