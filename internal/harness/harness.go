package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/callq/internal/commands"
	"github.com/roach88/callq/internal/config"
	"github.com/roach88/callq/internal/engine"
	"github.com/roach88/callq/internal/ir"
	"github.com/roach88/callq/internal/testutil"
)

// Harness is one scenario run: an engine wired to scripted collaborators.
type Harness struct {
	engine    *engine.Engine
	clock     *testutil.ManualClock
	transport *scriptedTransport
	page      *scriptedPage
	dom       *MemoryDOM
	requests  map[string]*engine.Request
	logger    *slog.Logger
}

// RunOption customizes a run.
type RunOption func(*runOptions)

type runOptions struct {
	observers []engine.Observer
	logger    *slog.Logger
}

// WithObserver adds an engine observer, e.g. a journal store.
func WithObserver(o engine.Observer) RunOption {
	return func(r *runOptions) { r.observers = append(r.observers, o) }
}

// WithLogger sets the engine logger. Runs are silent by default.
func WithLogger(l *slog.Logger) RunOption {
	return func(r *runOptions) { r.logger = l }
}

// Run executes a scenario and returns the result.
//
// Each run gets a fresh engine, document and clock. An error means the
// scenario could not be played (bad config, a reply for a request that
// is not in flight); failed expectations are reported in the result.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	ro := runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&ro)
	}

	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	h := &Harness{
		clock:     testutil.NewManualClock(),
		transport: newScriptedTransport(),
		page:      newScriptedPage(scenario),
		dom:       NewMemoryDOM(scenario.DOM, scenario.Components),
		requests:  make(map[string]*engine.Request),
		logger:    ro.logger,
	}

	engineOpts := []engine.Option{
		engine.WithConfig(cfg),
		engine.WithClock(h.clock),
		engine.WithIDGenerator(testutil.NewSequentialIDs("req")),
		engine.WithResolver(h.dom),
		engine.WithAttributeProcessor(h.dom),
		engine.WithObserver(&traceRecorder{result: result}),
		engine.WithLogger(ro.logger),
	}
	for _, o := range ro.observers {
		engineOpts = append(engineOpts, engine.WithObserver(o))
	}
	h.engine = engine.New(h.transport, engineOpts...)

	commands.Register(h.engine, commands.Env{
		Dialogs:  h.page,
		Script:   h.page,
		Styles:   h.page,
		Document: h.dom,
		Logger:   ro.logger,
	})

	for i, step := range scenario.Steps {
		if err := h.execute(step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	result.Alerts = append([]string(nil), h.page.alerts...)
	result.DOM = h.dom.Snapshot()

	if len(scenario.ExpectTrace) > 0 {
		if err := assertTraceEquals(result.Lines(), scenario.ExpectTrace); err != nil {
			result.AddError(err.Error())
		}
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func scenarioConfig(s *Scenario) (config.Config, error) {
	if s.Config.Kind == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(&s.Config)
	if err != nil {
		return config.Config{}, fmt.Errorf("encode scenario config: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return config.Config{}, fmt.Errorf("scenario config: %w", err)
	}
	return cfg, nil
}

func (h *Harness) execute(step Step) error {
	switch {
	case step.Issue != nil:
		return h.issue(step.Issue)
	case step.Reply != nil:
		return h.reply(step.Reply)
	case step.Fail != nil:
		return h.transport.fail(step.Fail.Request, step.Fail.Error)
	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		return nil
	case step.Answer != "":
		return h.page.answer(strings.EqualFold(step.Answer, "yes"))
	case step.Abort != "":
		r, ok := h.requests[step.Abort]
		if !ok {
			return fmt.Errorf("abort: unknown request %s", step.Abort)
		}
		h.engine.Abort(r)
		return nil
	}
	return fmt.Errorf("empty step")
}

func (h *Harness) issue(s *IssueStep) error {
	fn := engine.Function{
		Name:   s.Function,
		Class:  s.Class,
		Method: s.Method,
		Params: s.Params,
	}
	opts := engine.CallOptions{
		Mode:  engine.Mode(s.Mode),
		Retry: s.Retry,
	}
	r, err := h.engine.IssueCall(fn, opts)
	h.requests[r.ID] = r
	if err != nil {
		// A rejected call is part of the trace, not a broken scenario.
		h.logger.Info("call rejected", "request", r.ID, "error", err)
	}
	return nil
}

func (h *Harness) reply(s *ReplyStep) error {
	status := s.Status
	if status == 0 {
		status = 200
	}
	body := []byte(s.Body)
	if s.Body == "" && status < 300 {
		payload := map[string]any{ir.KeyCommands: s.Commands}
		if s.Commands == nil {
			payload[ir.KeyCommands] = []any{}
		}
		if s.Debug != "" {
			payload[ir.KeyDebug] = s.Debug
		}
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("encode reply: %w", err)
		}
	}
	return h.transport.deliver(s.Request, engine.Response{
		Status:   status,
		Location: s.Location,
		Body:     body,
	})
}
