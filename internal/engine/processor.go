package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/callq/internal/clock"
	"github.com/roach88/callq/internal/ir"
)

// NodeResolver locates the node a command targets.
type NodeResolver interface {
	ResolveByID(id string) (Node, bool)
	ResolveComponent(name, item string) (Node, bool)
}

// AttributeProcessor re-scans custom attributes under a node whose markup
// was just replaced.
type AttributeProcessor interface {
	Reprocess(node Node)
}

// domMutations are the commands that may replace markup under their target.
var domMutations = map[string]bool{
	"node.assign":  true,
	"node.append":  true,
	"node.prepend": true,
	"node.replace": true,
}

// markupAttrs are the attributes whose assignment replaces markup.
var markupAttrs = map[string]bool{
	"innerHTML": true,
	"outerHTML": true,
}

// Processor turns a decoded reply into a command queue and drains it.
//
// Drain order equals enqueue order, except where a handler re-offers a
// command (PushFront) or a confirmation skips ahead. A handler may suspend
// the drain by pausing the queue; ProcessQueue resumes it.
//
// Loop-only: not safe for concurrent use.
type Processor struct {
	registry *Registry
	resolver NodeResolver
	attrs    AttributeProcessor
	clock    clock.Clock
	capacity int
	observer Observer
	logger   *slog.Logger

	// onHalt runs after a handler failure stops a drain.
	onHalt func(q *CommandQueue, err error)
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithNodeResolver sets the target resolver.
func WithNodeResolver(r NodeResolver) ProcessorOption {
	return func(p *Processor) { p.resolver = r }
}

// WithProcessorAttributeProcessor sets the post-mutation attribute re-scanner.
func WithProcessorAttributeProcessor(a AttributeProcessor) ProcessorOption {
	return func(p *Processor) { p.attrs = a }
}

// WithProcessorObserver sets the event observer.
func WithProcessorObserver(o Observer) ProcessorOption {
	return func(p *Processor) { p.observer = o }
}

// WithHaltHandler sets the function run after a handler failure stops a drain.
func WithHaltHandler(f func(q *CommandQueue, err error)) ProcessorOption {
	return func(p *Processor) { p.onHalt = f }
}

// NewProcessor creates a processor dispatching through registry. Command
// queues hold at most capacity commands, sentinel included.
func NewProcessor(registry *Registry, clk clock.Clock, capacity int, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		registry: registry,
		clock:    clk,
		capacity: capacity,
		observer: nopObserver{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessCommands builds r's command queue from payload and drains it.
//
// Returns false, with no queue created and nothing dispatched, if payload is
// not an object. A QUEUE_OVERFLOW while enqueueing is returned as is; a
// HANDLER_FAILED error reports the drain was halted.
func (p *Processor) ProcessCommands(r *Request, payload any) (bool, error) {
	obj, ok := ir.AsObject(payload)
	if !ok {
		return false, nil
	}

	if msg, ok := ir.DebugMessage(obj); ok {
		p.logger.Info("reply debug message", "request", r.ID, "message", msg)
	}

	q := newCommandQueue(r, p.capacity)
	q.proc = p
	r.Queue = q

	for _, entry := range ir.Entries(obj) {
		if err := q.enqueue(entry); err != nil {
			return true, err
		}
	}
	if err := q.enqueue(ir.CommandEntry{Name: CompleteCommand, Args: map[string]any{}}); err != nil {
		return true, err
	}

	p.logger.Debug("command queue built", "request", r.ID, "commands", q.Len())
	return true, p.ProcessQueue(q, 0)
}

// ProcessQueue is the drain loop. It first discards up to skip commands,
// never popping the last one (the sentinel), then unpauses the queue and
// dispatches until the queue is paused or empty, a handler fails, or the
// request is aborted. Nothing is dispatched for a finished request.
func (p *Processor) ProcessQueue(q *CommandQueue, skip int) error {
	// Whoever resumes the queue supersedes a pending wakeup.
	q.cancelWakeup()

	if q.finished() {
		return nil
	}

	for ; skip > 0 && q.Len() > 1; skip-- {
		cmd, _ := q.pop()
		p.observer.Observe(commandEvent(EventSkipped, cmd, ""))
	}

	q.Paused = false
	for !q.Paused {
		// A handler may have aborted the request.
		if q.finished() {
			return nil
		}
		cmd, ok := q.pop()
		if !ok {
			return nil
		}
		if err := p.execute(cmd); err != nil {
			p.logger.Error("command failed, queue halted",
				"request", cmd.requestID(),
				"command", cmd.Name,
				"seq", cmd.Sequence,
				"remaining", q.Len(),
				"error", err,
			)
			p.observer.Observe(commandEvent(EventHalted, cmd, err.Error()))
			if p.onHalt != nil {
				p.onHalt(q, err)
			}
			return err
		}
	}

	if next, ok := q.Peek(); ok && !q.finished() {
		p.observer.Observe(commandEvent(EventPaused, next, ""))
	}
	return nil
}

// execute dispatches one command. Only handler failures are returned.
func (p *Processor) execute(cmd *Command) error {
	if !p.registry.IsRegistered(cmd.Name) {
		p.logger.Error("unknown command",
			"request", cmd.requestID(),
			"command", cmd.Name,
			"seq", cmd.Sequence,
		)
		p.observer.Observe(commandEvent(EventUnknown, cmd, ""))
		return nil
	}

	p.resolveTarget(cmd)

	if err := p.call(cmd); err != nil {
		return NewHandlerError(cmd, err)
	}

	if domMutations[cmd.Name] && markupAttrs[cmd.Arg("attr")] && cmd.Target != nil && p.attrs != nil {
		p.attrs.Reprocess(cmd.Target)
	}

	p.observer.Observe(commandEvent(EventDispatched, cmd, cmd.Description))
	return nil
}

// call invokes the handler, converting a panic into an error.
func (p *Processor) call(cmd *Command) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return p.registry.Call(cmd.Name, cmd.Args, cmd)
}

// resolveTarget looks up the command's node: component first, then args.id.
// A failed lookup is logged and the command still runs.
func (p *Processor) resolveTarget(cmd *Command) {
	if p.resolver == nil {
		return
	}
	id := cmd.Arg("id")
	if cmd.Component == nil && id == "" {
		return
	}

	if cmd.Component != nil {
		if node, ok := p.resolver.ResolveComponent(cmd.Component.Name, cmd.Component.Item); ok {
			cmd.Target = node
			return
		}
	}
	if id != "" {
		if node, ok := p.resolver.ResolveByID(id); ok {
			cmd.Target = node
			return
		}
	}

	attrs := []any{"request", cmd.requestID(), "command", cmd.Name, "seq", cmd.Sequence}
	if cmd.Component != nil {
		attrs = append(attrs, "component", cmd.Component.Name, "item", cmd.Component.Item)
	}
	if id != "" {
		attrs = append(attrs, "id", id)
	}
	p.logger.Warn("command target not found", attrs...)
}
