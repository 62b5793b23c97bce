package engine

// EventKind names a lifecycle point reported to an Observer.
type EventKind string

const (
	EventIssued     EventKind = "issued"
	EventQueued     EventKind = "queued"
	EventSubmitted  EventKind = "submitted"
	EventRetried    EventKind = "retried"
	EventReceived   EventKind = "received"
	EventDeferred   EventKind = "deferred"
	EventDispatched EventKind = "dispatched"
	EventUnknown    EventKind = "unknown"
	EventSkipped    EventKind = "skipped"
	EventPaused     EventKind = "paused"
	EventHalted     EventKind = "halted"
	EventFailed     EventKind = "failed"
	EventRedirected EventKind = "redirected"
	EventCompleted  EventKind = "completed"
	EventAborted    EventKind = "aborted"
)

// Event is one observed lifecycle point.
type Event struct {
	// Seq orders events; stamped by the engine.
	Seq int64

	Kind      EventKind
	RequestID string

	// Command and Sequence are set for command-level events.
	Command  string
	Sequence int

	Detail string
}

// Observer receives engine events on the loop goroutine. Implementations
// must not block: the journal and the scenario trace are both observers.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

func commandEvent(kind EventKind, cmd *Command, detail string) Event {
	return Event{
		Kind:      kind,
		RequestID: cmd.requestID(),
		Command:   cmd.Name,
		Sequence:  cmd.Sequence,
		Detail:    detail,
	}
}

func requestEvent(kind EventKind, r *Request, detail string) Event {
	return Event{Kind: kind, RequestID: r.ID, Sequence: -1, Detail: detail}
}
