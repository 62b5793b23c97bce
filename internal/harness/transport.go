package harness

import (
	"errors"
	"fmt"

	"github.com/roach88/callq/internal/engine"
)

// scriptedTransport holds every sent request until a reply or fail step
// answers it.
type scriptedTransport struct {
	inflight map[string]func(engine.Response)
	aborted  map[string]bool
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		inflight: make(map[string]func(engine.Response)),
		aborted:  make(map[string]bool),
	}
}

// Send implements engine.Transport.
func (t *scriptedTransport) Send(r *engine.Request, done func(engine.Response)) error {
	t.inflight[r.ID] = done
	return nil
}

// Abort implements engine.Transport.
func (t *scriptedTransport) Abort(r *engine.Request) {
	delete(t.inflight, r.ID)
	t.aborted[r.ID] = true
}

func (t *scriptedTransport) deliver(id string, resp engine.Response) error {
	done, ok := t.inflight[id]
	if !ok {
		if t.aborted[id] {
			return fmt.Errorf("request %s was aborted", id)
		}
		return fmt.Errorf("request %s is not in flight", id)
	}
	delete(t.inflight, id)
	done(resp)
	return nil
}

func (t *scriptedTransport) fail(id, msg string) error {
	if msg == "" {
		msg = "connection refused"
	}
	return t.deliver(id, engine.Response{Err: errors.New(msg)})
}
