package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/callq/internal/engine"
	"github.com/roach88/callq/internal/testutil"
)

func ev(seq int64, kind engine.EventKind, req, cmd string, cmdSeq int, detail string) engine.Event {
	return engine.Event{Seq: seq, Kind: kind, RequestID: req, Command: cmd, Sequence: cmdSeq, Detail: detail}
}

func TestRecord_ReadEvents(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	events := []engine.Event{
		ev(1, engine.EventIssued, "r1", "", -1, "hello"),
		ev(2, engine.EventSubmitted, "r1", "", -1, "POST /ajax"),
		ev(3, engine.EventIssued, "r2", "", -1, "other"),
		ev(4, engine.EventDispatched, "r1", "node.assign", 0, "assign a node attribute"),
		ev(5, engine.EventCompleted, "r1", "", -1, ""),
	}
	for _, e := range events {
		require.NoError(t, s.Record(ctx, e))
	}

	got, err := s.ReadEvents(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []engine.Event{events[0], events[1], events[3], events[4]}, got)

	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, events, all)
}

func TestRecord_DuplicateSeqIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, ev(1, engine.EventIssued, "r1", "", -1, "a")))
	require.NoError(t, s.Record(ctx, ev(1, engine.EventIssued, "r1", "", -1, "b")))

	got, err := s.ReadEvents(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Detail)
}

func TestReadEvents_UnknownRequest(t *testing.T) {
	s := createTestStore(t)
	got, err := s.ReadEvents(context.Background(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadCalls(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, e := range []engine.Event{
		ev(1, engine.EventIssued, "r1", "", -1, "first"),
		ev(2, engine.EventIssued, "r2", "", -1, "second"),
		ev(3, engine.EventAborted, "r2", "", -1, ""),
		ev(4, engine.EventCompleted, "r2", "", -1, ""),
		ev(5, engine.EventSubmitted, "r1", "", -1, ""),
	} {
		require.NoError(t, s.Record(ctx, e))
	}

	calls, err := s.ReadCalls(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Call{
		{ID: "r1", Function: "first", FirstSeq: 1, LastSeq: 5, Events: 2, Outcome: ""},
		{ID: "r2", Function: "second", FirstSeq: 2, LastSeq: 4, Events: 3, Outcome: "aborted"},
	}, calls)
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, s.Record(ctx, ev(7, engine.EventIssued, "r1", "", -1, "")))
	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestObserve_CountsFailures(t *testing.T) {
	s := createTestStore(t)
	s.SetLogger(discard())

	s.Observe(ev(1, engine.EventIssued, "r1", "", -1, "ok"))
	n, err := s.Dropped()
	assert.Zero(t, n)
	assert.NoError(t, err)

	require.NoError(t, s.db.Close())
	s.Observe(ev(2, engine.EventCompleted, "r1", "", -1, ""))
	n, err = s.Dropped()
	assert.Equal(t, 1, n)
	assert.Error(t, err)
	s.db = nil
}

// replyTransport answers every send immediately with a fixed body.
type replyTransport struct {
	body string
}

func (t replyTransport) Send(_ *engine.Request, done func(engine.Response)) error {
	done(engine.Response{Status: 200, Body: []byte(t.body)})
	return nil
}

func (replyTransport) Abort(*engine.Request) {}

func TestObserve_EngineRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	eng := engine.New(
		replyTransport{body: `{"commands":[{"name":"ping"}]}`},
		engine.WithClock(testutil.NewManualClock()),
		engine.WithIDGenerator(testutil.NewSequentialIDs("req")),
		engine.WithJournal(s),
		engine.WithLogger(discard()),
	)
	eng.RegisterCommand("ping", func(map[string]any, *engine.Command) error { return nil }, "")

	_, err := eng.IssueCall(engine.Function{Name: "hello"}, engine.CallOptions{})
	require.NoError(t, err)

	calls, err := s.ReadCalls(ctx)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "req-1", calls[0].ID)
	assert.Equal(t, "hello", calls[0].Function)
	assert.Equal(t, "completed", calls[0].Outcome)

	events, err := s.ReadEvents(ctx, "req-1")
	require.NoError(t, err)
	kinds := make([]engine.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []engine.EventKind{
		engine.EventIssued,
		engine.EventSubmitted,
		engine.EventReceived,
		engine.EventDispatched,
		engine.EventCompleted,
		engine.EventDispatched,
	}, kinds)

	// A second engine resumes numbering after the journal.
	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	seq := engine.NewSequencer(last)
	assert.Equal(t, last+1, seq.Next())
}
