package engine

import (
	"github.com/roach88/callq/internal/callback"
	"github.com/roach88/callq/internal/config"
)

// Mode selects how a call is scheduled.
type Mode string

const (
	// Asynchronous calls may overlap with each other.
	Asynchronous Mode = config.ModeAsynchronous
	// Synchronous calls are mutually exclusive and observed in issuance order.
	Synchronous Mode = config.ModeSynchronous
)

// Function describes the server-side callable a call targets: either a
// plain function (Name) or a method on a registered class (Class, Method).
type Function struct {
	Name   string
	Class  string
	Method string
	Params []any
}

// Kind returns "class" for class methods and "func" otherwise.
func (f Function) Kind() string {
	if f.Class != "" {
		return "class"
	}
	return "func"
}

// String renders the function for logs.
func (f Function) String() string {
	if f.Class != "" {
		return f.Class + "." + f.Method
	}
	return f.Name
}

// Indicator is a UI progress hook (status bar or cursor).
type Indicator interface {
	OnRequest()
	OnWaiting()
	OnProcessing()
	OnComplete()
}

// NopIndicator ignores every notification.
type NopIndicator struct{}

func (NopIndicator) OnRequest()    {}
func (NopIndicator) OnWaiting()    {}
func (NopIndicator) OnProcessing() {}
func (NopIndicator) OnComplete()   {}

// UploadFile is one file attached to a call.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Upload describes files sent with a call under a form field.
type Upload struct {
	Field string
	Files []UploadFile
}

// Hooks is a call's callback set.
type Hooks = callback.Set[*Request]

// CallOptions override the configured defaults for one call.
// Zero values mean "use the default".
type CallOptions struct {
	Mode        Mode
	Method      string
	URI         string
	Headers     map[string]string
	ContentType string

	// Retry overrides the configured transport retry count when non-nil.
	Retry *int

	// Hooks is the call's local callback set. Created on demand if nil.
	Hooks *Hooks

	Status Indicator
	Cursor Indicator
	Upload *Upload
}

// Response is what a transport reports when a call completes.
type Response struct {
	// Status is the HTTP status code; 0 when Err is set.
	Status int

	// Location is the redirect target for 3xx replies.
	Location string

	Header map[string][]string
	Body   []byte

	// Err reports a network-level failure (no reply at all).
	Err error
}

// StatusClass returns the hundreds digit of the status code.
func (r Response) StatusClass() int {
	return r.Status / 100
}

// Request is one logical call.
//
// It is created by Engine.IssueCall, mutated through the prepare, submit and
// receive phases, and stripped of its transient fields (Handle, Queue, URI,
// Body) once its completion cleanup has run.
//
// Loop-only: fields must be touched only from the engine loop.
type Request struct {
	ID       string
	Function Function

	// Resolved configuration snapshot.
	Mode             Mode
	Method           string
	URI              string
	Headers          map[string]string
	ContentType      string
	RetriesRemaining int

	// Callbacks is the ordered (global, local) pair.
	Callbacks []*Hooks

	Status Indicator
	Cursor Indicator
	Upload *Upload

	// Body is the serialized call, owned by the transport.
	Body []byte

	// Handle is the transport's in-flight handle.
	Handle any

	// Queue is the reply's command queue, once a reply arrived.
	Queue *CommandQueue

	// Response is the last reply received.
	Response *Response

	// Err is the terminal failure, if any.
	Err error

	aborted   bool
	completed bool

	// received is set once the scheduler let the reply through.
	received bool
}

// Local returns the call's own callback set.
func (r *Request) Local() *Hooks {
	if len(r.Callbacks) == 0 {
		return nil
	}
	return r.Callbacks[len(r.Callbacks)-1]
}

// Aborted reports whether Abort was called.
func (r *Request) Aborted() bool { return r.aborted }

// Completed reports whether the completion cleanup ran.
func (r *Request) Completed() bool { return r.completed }

// IsSynchronous reports whether the call runs in synchronous mode.
func (r *Request) IsSynchronous() bool { return r.Mode == Synchronous }

// clearTransient returns the request to an inert shape.
func (r *Request) clearTransient() {
	r.Handle = nil
	r.Queue = nil
	r.URI = ""
	r.Body = nil
}
