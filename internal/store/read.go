package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/callq/internal/engine"
)

// Call summarizes one journaled call.
type Call struct {
	ID       string
	Function string
	FirstSeq int64
	LastSeq  int64
	Events   int

	// Outcome is the kind of the call's terminal event ("completed" or
	// "aborted"), or "" while the call is open.
	Outcome string
}

// ReadEvents returns every event of one call in seq order. Returns an empty
// slice (not nil) for an unknown request.
func (s *Store) ReadEvents(ctx context.Context, requestID string) ([]engine.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, request_id, kind, command, command_seq, detail
		FROM events
		WHERE request_id = ?
		ORDER BY seq ASC
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

// ReadAll returns every journaled event in seq order.
func (s *Store) ReadAll(ctx context.Context) ([]engine.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, request_id, kind, command, command_seq, detail
		FROM events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]engine.Event, error) {
	defer rows.Close()

	events := []engine.Event{}
	for rows.Next() {
		var ev engine.Event
		var kind string
		if err := rows.Scan(&ev.Seq, &ev.RequestID, &kind, &ev.Command, &ev.Sequence, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = engine.EventKind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadCalls returns a summary of every journaled call, ordered by first seq.
func (s *Store) ReadCalls(ctx context.Context) ([]Call, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.function, c.first_seq,
		       COALESCE(MAX(e.seq), c.first_seq),
		       COUNT(e.seq),
		       COALESCE((
		           SELECT t.kind FROM events t
		           WHERE t.request_id = c.id AND t.kind IN ('completed', 'aborted')
		           ORDER BY t.seq ASC LIMIT 1
		       ), '')
		FROM calls c
		LEFT JOIN events e ON e.request_id = c.id
		GROUP BY c.id
		ORDER BY c.first_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := []Call{}
	for rows.Next() {
		var c Call
		if err := rows.Scan(&c.ID, &c.Function, &c.FirstSeq, &c.LastSeq, &c.Events, &c.Outcome); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}

// LastSeq returns the highest recorded seq, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}
