package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/callq/internal/engine"
)

// MemoryNode is a node of the memory document.
type MemoryNode struct {
	ID    string
	Attrs map[string]string
}

// MemoryDOM is an in-memory document. It resolves command targets for the
// engine, applies node mutations for the built-in commands, and records
// which nodes were reprocessed after markup changes.
type MemoryDOM struct {
	nodes      map[string]*MemoryNode
	components map[string]string

	// Reprocessed lists node ids in reprocess order.
	Reprocessed []string
}

// NewMemoryDOM seeds a document. components maps "name/item" to node ids.
func NewMemoryDOM(nodes map[string]map[string]string, components map[string]string) *MemoryDOM {
	d := &MemoryDOM{
		nodes:      make(map[string]*MemoryNode, len(nodes)),
		components: make(map[string]string, len(components)),
	}
	for id, attrs := range nodes {
		n := &MemoryNode{ID: id, Attrs: make(map[string]string, len(attrs))}
		for k, v := range attrs {
			n.Attrs[k] = v
		}
		d.nodes[id] = n
	}
	for k, v := range components {
		d.components[k] = v
	}
	return d
}

// ResolveByID implements engine.NodeResolver.
func (d *MemoryDOM) ResolveByID(id string) (engine.Node, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, false
	}
	return n, true
}

// ResolveComponent implements engine.NodeResolver.
func (d *MemoryDOM) ResolveComponent(name, item string) (engine.Node, bool) {
	id, ok := d.components[name+"/"+item]
	if !ok {
		return nil, false
	}
	return d.ResolveByID(id)
}

// Reprocess implements engine.AttributeProcessor.
func (d *MemoryDOM) Reprocess(target engine.Node) {
	if n, ok := target.(*MemoryNode); ok {
		d.Reprocessed = append(d.Reprocessed, n.ID)
	}
}

// Assign implements commands.Document.
func (d *MemoryDOM) Assign(target engine.Node, attr string, value any) error {
	n, err := memoryNode(target)
	if err != nil {
		return err
	}
	n.Attrs[attr] = fmt.Sprint(value)
	return nil
}

// Append implements commands.Document.
func (d *MemoryDOM) Append(target engine.Node, attr string, value any) error {
	n, err := memoryNode(target)
	if err != nil {
		return err
	}
	n.Attrs[attr] += fmt.Sprint(value)
	return nil
}

// Prepend implements commands.Document.
func (d *MemoryDOM) Prepend(target engine.Node, attr string, value any) error {
	n, err := memoryNode(target)
	if err != nil {
		return err
	}
	n.Attrs[attr] = fmt.Sprint(value) + n.Attrs[attr]
	return nil
}

// Replace implements commands.Document.
func (d *MemoryDOM) Replace(target engine.Node, attr, search string, value any) error {
	n, err := memoryNode(target)
	if err != nil {
		return err
	}
	if search == "" {
		return fmt.Errorf("replace on %s.%s: empty search string", n.ID, attr)
	}
	n.Attrs[attr] = strings.ReplaceAll(n.Attrs[attr], search, fmt.Sprint(value))
	return nil
}

// Attr returns a node attribute.
func (d *MemoryDOM) Attr(id, attr string) (string, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return "", false
	}
	v, ok := n.Attrs[attr]
	return v, ok
}

// Snapshot copies the document state.
func (d *MemoryDOM) Snapshot() map[string]map[string]string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string]map[string]string, len(ids))
	for _, id := range ids {
		attrs := make(map[string]string, len(d.nodes[id].Attrs))
		for k, v := range d.nodes[id].Attrs {
			attrs[k] = v
		}
		out[id] = attrs
	}
	return out
}

func memoryNode(target engine.Node) (*MemoryNode, error) {
	n, ok := target.(*MemoryNode)
	if !ok {
		return nil, fmt.Errorf("target %T is not a memory node", target)
	}
	return n, nil
}
