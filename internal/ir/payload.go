package ir

import "fmt"

// UnknownName is the command name given to entries that carry none.
const UnknownName = "*unknown*"

// Reply object keys.
const (
	KeyEnvelope  = "jxn"
	KeyDebug     = "debug"
	KeyCommands  = "commands"
	KeyName      = "name"
	KeyArgs      = "args"
	KeyComponent = "component"
	KeyItem      = "item"
)

// ComponentRef names a registered UI component instance that a command targets.
type ComponentRef struct {
	Name string
	Item string
}

// CommandEntry is one decoded command of a reply.
type CommandEntry struct {
	Name      string
	Args      map[string]any
	Component *ComponentRef

	// Fields holds every key of the original entry, including name and args.
	Fields map[string]any
}

// AsObject returns the reply object of a decoded payload.
// Returns false if payload is not a JSON object. A payload whose only
// object member is the "jxn" envelope is unwrapped.
func AsObject(payload any) (map[string]any, bool) {
	obj, ok := payload.(map[string]any)
	if !ok || obj == nil {
		return nil, false
	}
	if inner, ok := obj[KeyEnvelope].(map[string]any); ok {
		return inner, true
	}
	return obj, true
}

// DebugMessage returns the reply's debug message, if present and non-empty.
func DebugMessage(obj map[string]any) (string, bool) {
	v, ok := obj[KeyDebug]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return s, s != ""
}

// Entries decodes the reply's command list in order.
// Entries that are not objects decode as UnknownName commands with no args.
func Entries(obj map[string]any) []CommandEntry {
	raw, _ := obj[KeyCommands].([]any)
	entries := make([]CommandEntry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, decodeEntry(r))
	}
	return entries
}

func decodeEntry(r any) CommandEntry {
	fields, ok := r.(map[string]any)
	if !ok {
		return CommandEntry{Name: UnknownName, Args: map[string]any{}}
	}

	e := CommandEntry{Name: UnknownName, Fields: fields}
	if name, ok := fields[KeyName].(string); ok && name != "" {
		e.Name = name
	}
	if args, ok := fields[KeyArgs].(map[string]any); ok {
		e.Args = args
	} else {
		e.Args = map[string]any{}
	}
	if comp, ok := fields[KeyComponent].(map[string]any); ok {
		ref := &ComponentRef{}
		ref.Name, _ = comp[KeyName].(string)
		ref.Item = stringify(comp[KeyItem])
		if ref.Name != "" {
			e.Component = ref
		}
	}
	return e
}

// stringify renders a component item, which may arrive as a string or number.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprint(val)
	default:
		return fmt.Sprint(val)
	}
}
