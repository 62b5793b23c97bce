package engine

import (
	"log/slog"
	"maps"

	"github.com/roach88/callq/internal/callback"
	"github.com/roach88/callq/internal/clock"
	"github.com/roach88/callq/internal/config"
)

// Engine is the call facade: it issues calls through the scheduler, hands
// replies to the processor and runs each call's completion cleanup.
//
// CRITICAL: every method runs on the engine loop. Callers on other
// goroutines post work with Loop().Submit.
//
// INVARIANTS:
//   - a request's completion cleanup runs at most once
//   - nothing a transport reports for an aborted request has any effect
type Engine struct {
	cfg       config.Config
	clock     clock.Clock
	loop      *Loop
	transport Transport
	decoder   Decoder
	ids       IDGenerator
	resolver  NodeResolver
	attrs     AttributeProcessor
	global    *Hooks
	observers []Observer
	seq       *Sequencer
	logger    *slog.Logger

	registry  *Registry
	scheduler *Scheduler
	processor *Processor
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithClock sets the timer source. Defaults to wall-clock timers posted to
// the engine loop.
func WithClock(clk clock.Clock) Option {
	return func(e *Engine) { e.clock = clk }
}

// WithLoop runs the engine on l instead of a loop of its own.
func WithLoop(l *Loop) Option {
	return func(e *Engine) { e.loop = l }
}

// WithResolver sets the command target resolver.
func WithResolver(r NodeResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithAttributeProcessor sets the re-scanner run after markup replacement.
func WithAttributeProcessor(a AttributeProcessor) Option {
	return func(e *Engine) { e.attrs = a }
}

// WithDecoder sets the reply decoder.
func WithDecoder(d Decoder) Option {
	return func(e *Engine) { e.decoder = d }
}

// WithIDGenerator sets the request id source. Defaults to UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithJournal records every engine event to j.
func WithJournal(j Observer) Option {
	return WithObserver(j)
}

// WithObserver adds an event observer. Observers run in registration order.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithSequencer sets the event sequence source, so a journal reopened for
// append keeps increasing numbers.
func WithSequencer(s *Sequencer) Option {
	return func(e *Engine) { e.seq = s }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithGlobalCallbacks sets the engine-wide callback set, fired before each
// call's own set.
func WithGlobalCallbacks(h *Hooks) Option {
	return func(e *Engine) { e.global = h }
}

// New creates an engine sending calls through transport.
func New(transport Transport, opts ...Option) *Engine {
	e := &Engine{
		cfg:       config.Default(),
		transport: transport,
		ids:       UUIDv7Generator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.loop == nil {
		e.loop = NewLoop()
	}
	if e.clock == nil {
		e.clock = clock.OnLoop(e.loop)
	}
	if e.seq == nil {
		e.seq = NewSequencer(0)
	}
	if e.decoder == nil {
		e.decoder = DecoderFunc(decodeJSON)
	}
	if e.global == nil {
		e.global = callback.New[*Request](e.clock, e.cfg.ResponseDelay, e.cfg.Expiration)
	}

	e.registry = NewRegistry()
	e.registry.Register(CompleteCommand, func(_ map[string]any, cmd *Command) error {
		e.cleanup(cmd.Request)
		return nil
	}, "run the call's completion cleanup")

	e.scheduler = NewScheduler(e.cfg.RequestQueueSize, e.submit, e.receive, e.logger)
	e.processor = NewProcessor(e.registry, e.clock, e.cfg.CommandQueueSize, e.logger,
		WithNodeResolver(e.resolver),
		WithProcessorAttributeProcessor(e.attrs),
		WithProcessorObserver(ObserverFunc(e.emit)),
		WithHaltHandler(func(q *CommandQueue, err error) {
			if r := q.Request(); r != nil {
				r.Err = err
				e.cleanup(r)
			}
		}),
	)

	return e
}

// Config returns the active configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// Loop returns the loop the engine runs on.
func (e *Engine) Loop() *Loop { return e.loop }

// Clock returns the engine's timer source.
func (e *Engine) Clock() clock.Clock { return e.clock }

// Registry returns the command dispatch table.
func (e *Engine) Registry() *Registry { return e.registry }

// Scheduler returns the request scheduler.
func (e *Engine) Scheduler() *Scheduler { return e.scheduler }

// Processor returns the command-queue processor.
func (e *Engine) Processor() *Processor { return e.processor }

// GlobalCallbacks returns the engine-wide callback set.
func (e *Engine) GlobalCallbacks() *Hooks { return e.global }

// RegisterCommand installs or replaces a command handler.
func (e *Engine) RegisterCommand(name string, handler Handler, description string) {
	e.registry.Register(name, handler, description)
}

// UnregisterCommand removes a command handler and returns it.
func (e *Engine) UnregisterCommand(name string) (Handler, bool) {
	return e.registry.Unregister(name)
}

// NewHooks creates a callback set with the configured timer delays, for use
// as CallOptions.Hooks.
func (e *Engine) NewHooks() *Hooks {
	return callback.New[*Request](e.clock, e.cfg.ResponseDelay, e.cfg.Expiration)
}

// IssueCall starts a call to fn.
//
// The returned request is live even when it must wait behind a synchronous
// call. A QUEUE_OVERFLOW error means the scheduler had no room: the request
// is returned already completed and was never sent.
func (e *Engine) IssueCall(fn Function, opts CallOptions) (*Request, error) {
	r := e.newRequest(fn, opts)
	e.emit(requestEvent(EventIssued, r, fn.String()))
	e.logger.Debug("call issued",
		"request", r.ID,
		"function", fn.String(),
		"mode", string(r.Mode),
		"method", r.Method,
	)

	callback.Execute(r.Callbacks, callback.Prepare, r)

	now, err := e.scheduler.Prepare(r)
	if err != nil {
		e.logger.Error("call rejected by scheduler", "request", r.ID, "error", err)
		r.Err = err
		e.cleanup(r)
		return r, err
	}
	if !now {
		e.emit(requestEvent(EventQueued, r, ""))
		return r, nil
	}
	e.submit(r)
	return r, nil
}

func (e *Engine) newRequest(fn Function, opts CallOptions) *Request {
	r := &Request{
		ID:               e.ids.Generate(),
		Function:         fn,
		Mode:             Mode(e.cfg.Mode),
		Method:           e.cfg.Method,
		URI:              e.cfg.URI,
		ContentType:      e.cfg.ContentType,
		RetriesRemaining: e.cfg.Retry,
		Status:           NopIndicator{},
		Cursor:           NopIndicator{},
		Upload:           opts.Upload,
	}
	if opts.Mode != "" {
		r.Mode = opts.Mode
	}
	if opts.Method != "" {
		r.Method = opts.Method
	}
	if opts.URI != "" {
		r.URI = opts.URI
	}
	if opts.ContentType != "" {
		r.ContentType = opts.ContentType
	}
	if opts.Retry != nil {
		r.RetriesRemaining = *opts.Retry
	}
	if len(e.cfg.Headers) > 0 || len(opts.Headers) > 0 {
		r.Headers = make(map[string]string, len(e.cfg.Headers)+len(opts.Headers))
		maps.Copy(r.Headers, e.cfg.Headers)
		maps.Copy(r.Headers, opts.Headers)
	}
	if opts.Status != nil {
		r.Status = opts.Status
	}
	if opts.Cursor != nil {
		r.Cursor = opts.Cursor
	}

	local := opts.Hooks
	if local == nil {
		local = e.NewHooks()
	}
	r.Callbacks = []*Hooks{e.global, local}
	return r
}

// submit hands r to the transport and arms its timers.
func (e *Engine) submit(r *Request) {
	if r.aborted {
		return
	}

	callback.Execute(r.Callbacks, callback.Request, r)
	callback.Execute(r.Callbacks, callback.ResponseDelay, r)
	callback.Execute(r.Callbacks, callback.Expiration, r)
	r.Status.OnRequest()
	r.Cursor.OnWaiting()

	e.emit(requestEvent(EventSubmitted, r, r.Method+" "+r.URI))
	if err := e.transport.Send(r, func(resp Response) { e.complete(r, resp) }); err != nil {
		e.logger.Warn("transport send failed", "request", r.ID, "error", err)
		e.complete(r, Response{Err: err})
		return
	}
	r.Status.OnWaiting()
}

// Complete reports the outcome of r's round trip. Transports normally
// report through the done function given to Send; Complete is the same
// entry point for callers that drive a transport by hand.
func (e *Engine) Complete(r *Request, resp Response) error {
	return e.complete(r, resp)
}

func (e *Engine) complete(r *Request, resp Response) error {
	if r.aborted || r.completed {
		return nil
	}

	if resp.Err != nil && r.RetriesRemaining > 0 {
		r.RetriesRemaining--
		e.logger.Warn("transport error, resubmitting",
			"request", r.ID,
			"retries_remaining", r.RetriesRemaining,
			"error", resp.Err,
		)
		e.emit(requestEvent(EventRetried, r, resp.Err.Error()))
		e.submit(r)
		return nil
	}

	r.Response = &resp
	r.received = false
	if err := e.scheduler.Complete(r); err != nil {
		e.logger.Error("reply could not be deferred", "request", r.ID, "error", err)
		r.Err = err
		e.cleanup(r)
		return err
	}
	if !r.received {
		e.emit(requestEvent(EventDeferred, r, ""))
	}
	return nil
}

// receive processes r's reply. Called by the scheduler.
func (e *Engine) receive(r *Request) {
	r.received = true
	resp := r.Response
	if resp == nil {
		resp = &Response{}
	}

	callback.ClearTimer(r.Callbacks, callback.ResponseDelay)
	callback.ClearTimer(r.Callbacks, callback.Expiration)
	callback.Execute(r.Callbacks, callback.BeforeResponseProcessing, r)
	if r.completed {
		return
	}

	switch resp.StatusClass() {
	case 2:
		e.emit(requestEvent(EventReceived, r, statusText(resp.Status)))
		callback.Execute(r.Callbacks, callback.Success, r)
		if r.completed {
			return
		}
		r.Status.OnProcessing()

		payload, err := e.decoder.Decode(resp.Body)
		if err != nil {
			e.logger.Warn("reply could not be decoded", "request", r.ID, "error", err)
			e.cleanup(r)
			return
		}
		ok, err := e.processor.ProcessCommands(r, payload)
		if !ok {
			e.logger.Warn("reply is not a command object", "request", r.ID)
			e.cleanup(r)
			return
		}
		if err != nil && IsOverflowError(err) {
			e.logger.Error("reply exceeds command queue capacity", "request", r.ID, "error", err)
			r.Err = err
			e.cleanup(r)
		}
		// Handler failures were cleaned up by the halt handler.

	case 3:
		r.Err = NewRedirectError(r.ID, resp.Status, resp.Location)
		e.logger.Info("call redirected", "request", r.ID, "status", resp.Status, "location", resp.Location)
		e.emit(requestEvent(EventRedirected, r, resp.Location))
		callback.Execute(r.Callbacks, callback.Redirect, r)
		e.cleanup(r)

	default:
		r.Err = NewTransportError(r.ID, resp.Status, resp.Err)
		e.logger.Warn("call failed", "request", r.ID, "status", resp.Status, "error", resp.Err)
		e.emit(requestEvent(EventFailed, r, statusText(resp.Status)))
		callback.Execute(r.Callbacks, callback.Failure, r)
		e.cleanup(r)
	}
}

// Abort cancels r. Its completion cleanup runs now, no queued command of
// its reply is drained any further, and a later transport report is
// ignored. Aborting a finished request is a no-op.
func (e *Engine) Abort(r *Request) {
	if r.aborted || r.completed {
		return
	}
	r.aborted = true
	e.transport.Abort(r)

	callback.ClearTimer(r.Callbacks, callback.ResponseDelay)
	callback.ClearTimer(r.Callbacks, callback.Expiration)

	e.logger.Info("call aborted", "request", r.ID)
	e.emit(requestEvent(EventAborted, r, ""))
	e.cleanup(r)
	e.scheduler.Abort(r)
}

// cleanup is the completion path: onComplete fires, indicators are reset
// and the transient fields are dropped. Idempotent.
func (e *Engine) cleanup(r *Request) {
	if r == nil || r.completed {
		return
	}
	r.completed = true

	if r.Queue != nil {
		r.Queue.cancelWakeup()
	}
	callback.Execute(r.Callbacks, callback.Complete, r)
	r.Status.OnComplete()
	r.Cursor.OnComplete()
	r.clearTransient()

	detail := ""
	if r.Err != nil {
		detail = r.Err.Error()
	}
	e.emit(requestEvent(EventCompleted, r, detail))
}

// emit stamps ev and hands it to every observer.
func (e *Engine) emit(ev Event) {
	ev.Seq = e.seq.Next()
	for _, o := range e.observers {
		o.Observe(ev)
	}
}
