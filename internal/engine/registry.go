package engine

import "sort"

// Handler implements a command. It receives the command's arguments and the
// command itself, through which it reaches the request, the queue and the
// resolved target. Returning an error halts the queue's drain loop.
type Handler func(args map[string]any, cmd *Command) error

type registryEntry struct {
	handler     Handler
	description string
}

// Registry is the open name -> handler dispatch table.
//
// It is intentionally not a closed set: plugins add or replace entries at
// runtime. Callers check IsRegistered before Call.
//
// Loop-only: not safe for concurrent use.
type Registry struct {
	entries map[string]registryEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register installs handler under name, replacing any previous entry.
func (r *Registry) Register(name string, handler Handler, description string) {
	r.entries[name] = registryEntry{handler: handler, description: description}
}

// Unregister removes name and returns the handler it held.
func (r *Registry) Unregister(name string) (Handler, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	delete(r.entries, name)
	return e.handler, true
}

// IsRegistered reports whether name has a handler.
func (r *Registry) IsRegistered(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Description returns the description registered with name.
func (r *Registry) Description(name string) string {
	return r.entries[name].description
}

// Names returns registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call attaches name's description to cmd and invokes its handler.
// Only valid after IsRegistered(name) returned true; otherwise it returns an
// UNKNOWN_COMMAND RuntimeError.
func (r *Registry) Call(name string, args map[string]any, cmd *Command) error {
	e, ok := r.entries[name]
	if !ok {
		return NewUnknownCommandError(name)
	}
	cmd.Description = e.description
	return e.handler(args, cmd)
}
