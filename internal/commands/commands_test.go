package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/callq/internal/engine"
	"github.com/roach88/callq/internal/testutil"
)

type replyTransport struct {
	done map[string]func(engine.Response)
}

func (t *replyTransport) Send(r *engine.Request, done func(engine.Response)) error {
	t.done[r.ID] = done
	return nil
}

func (t *replyTransport) Abort(*engine.Request) {}

type dialogs struct {
	asked  []string
	alerts []string
	yes    func()
	no     func()
}

func (d *dialogs) Confirm(question, title string, onYes, onNo func()) {
	d.asked = append(d.asked, title+": "+question)
	d.yes, d.no = onYes, onNo
}

func (d *dialogs) Alert(title, message string) {
	d.alerts = append(d.alerts, title+": "+message)
}

type script struct {
	results map[string][]bool
	err     error
	evals   int
}

func (s *script) Eval(expr string) (bool, error) {
	s.evals++
	if s.err != nil {
		return false, s.err
	}
	rs := s.results[expr]
	if len(rs) == 0 {
		return false, nil
	}
	ok := rs[0]
	s.results[expr] = rs[1:]
	return ok, nil
}

type styles struct{ loadedAfter, checks int }

func (s *styles) Loaded() bool {
	s.checks++
	return s.checks > s.loadedAfter
}

type document struct {
	ops []string
}

func (d *document) Assign(target engine.Node, attr string, value any) error {
	d.ops = append(d.ops, fmt.Sprintf("assign %v.%s=%v", target, attr, value))
	return nil
}

func (d *document) Append(target engine.Node, attr string, value any) error {
	d.ops = append(d.ops, fmt.Sprintf("append %v.%s+=%v", target, attr, value))
	return nil
}

func (d *document) Prepend(target engine.Node, attr string, value any) error {
	d.ops = append(d.ops, fmt.Sprintf("prepend %v.%s=%v+", target, attr, value))
	return nil
}

func (d *document) Replace(target engine.Node, attr, search string, value any) error {
	if search == "" {
		return errors.New("empty search")
	}
	d.ops = append(d.ops, fmt.Sprintf("replace %v.%s %s->%v", target, attr, search, value))
	return nil
}

type ids map[string]string

func (m ids) ResolveByID(id string) (engine.Node, bool) {
	n, ok := m[id]
	return n, ok
}

func (m ids) ResolveComponent(string, string) (engine.Node, bool) { return nil, false }

type fixture struct {
	eng       *engine.Engine
	transport *replyTransport
	clock     *testutil.ManualClock
	ran       []string
}

func newFixture(t *testing.T, env Env) *fixture {
	t.Helper()
	f := &fixture{
		transport: &replyTransport{done: map[string]func(engine.Response){}},
		clock:     testutil.NewManualClock(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.Logger = logger
	f.eng = engine.New(f.transport,
		engine.WithClock(f.clock),
		engine.WithIDGenerator(testutil.NewSequentialIDs("req")),
		engine.WithLogger(logger),
		engine.WithResolver(ids{"box": "box"}),
	)
	Register(f.eng, env)
	for _, n := range []string{"A", "B", "C", "D"} {
		f.eng.RegisterCommand(n, func(_ map[string]any, cmd *engine.Command) error {
			f.ran = append(f.ran, cmd.Name)
			return nil
		}, "")
	}
	return f
}

func (f *fixture) call(t *testing.T, body string) *engine.Request {
	t.Helper()
	r, err := f.eng.IssueCall(engine.Function{Name: "f"}, engine.CallOptions{})
	require.NoError(t, err)
	f.transport.done[r.ID](engine.Response{Status: 200, Body: []byte(body)})
	return r
}

const confirmBody = `{"commands":[
	{"name":"dialog.confirm","args":{"count":3,"question":{"title":"Delete","phrase":"Really?"}}},
	{"name":"A"},{"name":"B"},{"name":"C"},{"name":"D"}]}`

func TestConfirm(t *testing.T) {
	t.Run("yes", func(t *testing.T) {
		d := &dialogs{}
		f := newFixture(t, Env{Dialogs: d})
		r := f.call(t, confirmBody)

		assert.Equal(t, []string{"Delete: Really?"}, d.asked)
		assert.Empty(t, f.ran)
		d.yes()
		assert.Equal(t, []string{"A", "B", "C", "D"}, f.ran)
		assert.True(t, r.Completed())
	})

	t.Run("no", func(t *testing.T) {
		d := &dialogs{}
		f := newFixture(t, Env{Dialogs: d})
		r := f.call(t, confirmBody)

		d.no()
		assert.Equal(t, []string{"D"}, f.ran)
		assert.True(t, r.Completed())
	})

	t.Run("no dialogs confirms", func(t *testing.T) {
		f := newFixture(t, Env{})
		f.call(t, confirmBody)
		assert.Equal(t, []string{"A", "B", "C", "D"}, f.ran)
	})
}

func TestAlert(t *testing.T) {
	d := &dialogs{}
	f := newFixture(t, Env{Dialogs: d})
	f.call(t, `{"commands":[{"name":"dialog.alert","args":{"title":"Note","message":"Saved"}},{"name":"A"}]}`)

	assert.Equal(t, []string{"Note: Saved"}, d.alerts)
	assert.Equal(t, []string{"A"}, f.ran)
}

func TestSleep(t *testing.T) {
	tests := []struct {
		duration int
		want     time.Duration
	}{
		{duration: 0, want: 0},
		{duration: 1, want: 100 * time.Millisecond},
		{duration: 5, want: 500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.duration), func(t *testing.T) {
			f := newFixture(t, Env{})
			body := fmt.Sprintf(`{"commands":[{"name":"script.sleep","args":{"duration":%d}},{"name":"A"}]}`, tt.duration)
			r := f.call(t, body)

			// duration tenths of a second: one wakeup per PollInterval.
			for i := 0; i < tt.duration; i++ {
				assert.Empty(t, f.ran, "still sleeping after %d wakeups", i)
				f.clock.Advance(PollInterval)
			}
			assert.Equal(t, []string{"A"}, f.ran)
			assert.True(t, r.Completed())
			assert.Equal(t, tt.want, f.clock.Now())
		})
	}
}

func TestWaitFor(t *testing.T) {
	t.Run("condition becomes true", func(t *testing.T) {
		s := &script{results: map[string][]bool{"ready": {false, false, true}}}
		f := newFixture(t, Env{Script: s})
		f.call(t, `{"commands":[{"name":"script.wait.for","args":{"condition":"ready","tries":10}},{"name":"A"}]}`)

		assert.Empty(t, f.ran)
		f.clock.Advance(2 * PollInterval)
		assert.Equal(t, []string{"A"}, f.ran)
		assert.Equal(t, 3, s.evals)
	})

	t.Run("gives up after tries", func(t *testing.T) {
		s := &script{results: map[string][]bool{}}
		f := newFixture(t, Env{Script: s})
		f.call(t, `{"commands":[{"name":"script.wait.for","args":{"condition":"never","tries":3}},{"name":"A"}]}`)

		f.clock.Advance(time.Second)
		assert.Equal(t, []string{"A"}, f.ran)
		assert.Equal(t, 3, s.evals)
	})

	t.Run("eval error halts the queue", func(t *testing.T) {
		s := &script{err: errors.New("syntax error")}
		f := newFixture(t, Env{Script: s})
		r := f.call(t, `{"commands":[{"name":"script.wait.for","args":{"condition":"x(","tries":3}},{"name":"A"}]}`)

		assert.Empty(t, f.ran)
		assert.True(t, engine.IsHandlerError(r.Err))
		assert.True(t, r.Completed())
	})
}

func TestCSSWait(t *testing.T) {
	st := &styles{loadedAfter: 2}
	f := newFixture(t, Env{Styles: st})
	f.call(t, `{"commands":[{"name":"css.wait","args":{"tries":5}},{"name":"A"}]}`)

	assert.Empty(t, f.ran)
	f.clock.Advance(PollInterval)
	assert.Empty(t, f.ran)
	f.clock.Advance(PollInterval)
	assert.Equal(t, []string{"A"}, f.ran)
	assert.Equal(t, 3, st.checks)
}

func TestNodeCommands(t *testing.T) {
	doc := &document{}
	f := newFixture(t, Env{Document: doc})
	f.call(t, `{"commands":[
		{"name":"node.assign","args":{"id":"box","attr":"innerHTML","value":"<b>hi</b>"}},
		{"name":"node.append","args":{"id":"box","attr":"innerHTML","value":"!"}},
		{"name":"node.prepend","args":{"id":"box","attr":"innerHTML","value":">"}},
		{"name":"node.replace","args":{"id":"box","attr":"innerHTML","search":"hi","value":"bye"}},
		{"name":"node.assign","args":{"id":"missing","attr":"innerHTML","value":"x"}}
	]}`)

	assert.Equal(t, []string{
		"assign box.innerHTML=<b>hi</b>",
		"append box.innerHTML+=!",
		"prepend box.innerHTML=>+",
		"replace box.innerHTML hi->bye",
	}, doc.ops)
}

func TestNodeCommandErrorHalts(t *testing.T) {
	doc := &document{}
	f := newFixture(t, Env{Document: doc})
	r := f.call(t, `{"commands":[
		{"name":"node.replace","args":{"id":"box","attr":"innerHTML","value":"x"}},
		{"name":"A"}
	]}`)

	assert.Empty(t, f.ran)
	assert.True(t, engine.IsHandlerError(r.Err))
}

func TestRegister(t *testing.T) {
	f := newFixture(t, Env{})
	for _, n := range []string{
		DialogConfirm, DialogAlert, ScriptSleep, ScriptWaitFor, ScriptDebug,
		CSSWait, NodeAssign, NodeAppend, NodePrepend, NodeReplace,
	} {
		assert.True(t, f.eng.Registry().IsRegistered(n), n)
		assert.NotEmpty(t, f.eng.Registry().Description(n), n)
	}
}
