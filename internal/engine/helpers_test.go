package engine

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/callq/internal/callback"
	"github.com/roach88/callq/internal/config"
	"github.com/roach88/callq/internal/testutil"
)

// fakeTransport records sends and lets the test deliver replies by hand.
type fakeTransport struct {
	sent    []string
	done    map[string]func(Response)
	aborted []string
	sendErr error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{done: make(map[string]func(Response))}
}

func (t *fakeTransport) Send(r *Request, done func(Response)) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, r.ID)
	t.done[r.ID] = done
	return nil
}

func (t *fakeTransport) Abort(r *Request) {
	t.aborted = append(t.aborted, r.ID)
}

func (t *fakeTransport) reply(tb testing.TB, id string, status int, body string) {
	tb.Helper()
	done, ok := t.done[id]
	require.True(tb, ok, "no send recorded for %s", id)
	done(Response{Status: status, Body: []byte(body)})
}

func (t *fakeTransport) fail(tb testing.TB, id string, err error) {
	tb.Helper()
	done, ok := t.done[id]
	require.True(tb, ok, "no send recorded for %s", id)
	done(Response{Err: err})
}

// recorder is an Observer keeping every event.
type recorder struct {
	events []Event
}

func (r *recorder) Observe(e Event) { r.events = append(r.events, e) }

// trace renders events as "kind request [command#seq]" lines.
func (r *recorder) trace() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		line := string(e.Kind) + " " + e.RequestID
		if e.Command != "" {
			line += fmt.Sprintf(" %s#%d", e.Command, e.Sequence)
		}
		out = append(out, line)
	}
	return out
}

// filter keeps only the given kinds.
func (r *recorder) filter(kinds ...EventKind) []string {
	keep := make(map[EventKind]bool, len(kinds))
	for _, k := range kinds {
		keep[k] = true
	}
	var out []string
	for i, e := range r.events {
		if keep[e.Kind] {
			out = append(out, r.trace()[i])
		}
	}
	return out
}

// hookLog collects fired callback names.
type hookLog struct {
	fired []string
}

func (h *hookLog) attach(set *Hooks, prefix string) {
	for _, ev := range callback.Events {
		name := prefix + string(ev)
		set.On(ev, func(*Request) { h.fired = append(h.fired, name) })
	}
}

type testEngine struct {
	*Engine
	transport *fakeTransport
	clock     *testutil.ManualClock
	rec       *recorder
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, mutate func(*config.Config), opts ...Option) *testEngine {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	te := &testEngine{
		transport: newFakeTransport(),
		clock:     testutil.NewManualClock(),
		rec:       &recorder{},
	}
	base := []Option{
		WithConfig(cfg),
		WithClock(te.clock),
		WithIDGenerator(testutil.NewSequentialIDs("req")),
		WithObserver(te.rec),
		WithLogger(discardLogger()),
	}
	te.Engine = New(te.transport, append(base, opts...)...)
	return te
}

// record registers a handler that appends its command name to log.
func (te *testEngine) record(log *[]string, names ...string) {
	for _, name := range names {
		te.RegisterCommand(name, func(_ map[string]any, cmd *Command) error {
			*log = append(*log, cmd.Name)
			return nil
		}, "")
	}
}

// commandsBody renders a reply whose commands carry only names.
func commandsBody(names ...string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf(`{"name":%q}`, n)
	}
	return `{"commands":[` + strings.Join(parts, ",") + `]}`
}
