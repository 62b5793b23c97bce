package engine

// Transport carries a call to the server.
//
// Send starts r's round trip. It must not block; done reports the outcome
// and must be invoked on the engine loop (post it with Loop.Submit when the
// reply arrives on another goroutine), at most once. A non-nil error means
// nothing was sent and done will not be called.
//
// Abort cancels r's round trip. done must not be called afterwards, and if it
// is the engine ignores it.
type Transport interface {
	Send(r *Request, done func(Response)) error
	Abort(r *Request)
}

// Decoder turns a raw reply body into the value handed to ProcessCommands.
type Decoder interface {
	Decode(body []byte) (any, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func([]byte) (any, error)

// Decode implements Decoder.
func (f DecoderFunc) Decode(body []byte) (any, error) { return f(body) }
