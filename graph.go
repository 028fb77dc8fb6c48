package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/resource"
)

// PassID identifies a pass within one Graph. It is only meaningful for
// the graph that issued it.
type PassID int

// PassFunc is the deferred work recorded for a pass. It runs once during
// execution, after the pass's barriers have been issued, with every
// resource the pass declared already bound. It must resolve resources
// through the [PassContext] rather than capture backend objects.
type PassFunc func(ctx *PassContext) error

type accessKind uint8

const (
	accessRead accessKind = iota
	accessWrite
	accessCreate
)

// accessEvent is one declared resource access. Events are kept in graph-
// wide declaration order; dependency edges are derived purely from this
// order (a writer executes before every subsequent reader).
type accessEvent struct {
	pass   PassID
	handle resource.Handle
	kind   accessKind
}

// PassNode is one declared rendering pass.
type PassNode struct {
	id         PassID
	name       string
	reads      []resource.Handle
	writes     []resource.Handle
	creates    []resource.Handle
	work       PassFunc
	sideEffect bool
}

// Name returns the human-readable pass name.
func (p *PassNode) Name() string { return p.name }

// ID returns the pass identifier.
func (p *PassNode) ID() PassID { return p.id }

// handles returns every handle the pass references, deduplicated,
// reads first, in declaration order.
func (p *PassNode) handles() []resource.Handle {
	out := make([]resource.Handle, 0, len(p.reads)+len(p.writes)+len(p.creates))
	seen := make(map[resource.Handle]struct{})
	add := func(hs []resource.Handle) {
		for _, h := range hs {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}
	add(p.reads)
	add(p.writes)
	add(p.creates)
	return out
}

// Graph is one frame's uncompiled pass graph. It is built fresh every
// frame, compiled once, and discarded; it is not safe for concurrent use.
//
// Building a graph performs no backend calls: declarations only record
// intent, and transient resources are registered in the table without
// allocation.
type Graph struct {
	table   *resource.Table
	passes  []*PassNode
	events  []accessEvent
	outputs []resource.Handle
	outSet  map[resource.Handle]struct{}
}

// NewGraph creates an empty graph resolving handles through table.
func NewGraph(table *resource.Table) *Graph {
	return &Graph{
		table:  table,
		outSet: make(map[resource.Handle]struct{}),
	}
}

// Table returns the resource table the graph was built against.
func (g *Graph) Table() *resource.Table { return g.table }

// AddPass registers a new pass and returns its identifier. The work
// function may be nil for passes that only shape the dependency graph
// (useful in tests).
func (g *Graph) AddPass(name string, work PassFunc) PassID {
	id := PassID(len(g.passes))
	g.passes = append(g.passes, &PassNode{id: id, name: name, work: work})
	logger().Debug("framegraph: add pass", "pass", name, "id", int(id))
	return id
}

// pass resolves a PassID, panicking on foreign or corrupt IDs. Passing a
// PassID from another graph is a programmer error on par with an
// out-of-range slice index.
func (g *Graph) pass(id PassID) *PassNode {
	if int(id) < 0 || int(id) >= len(g.passes) {
		panic(fmt.Sprintf("framegraph: invalid pass id %d", int(id)))
	}
	return g.passes[id]
}

// Read declares that the pass reads h.
func (g *Graph) Read(id PassID, h resource.Handle) {
	p := g.pass(id)
	p.reads = append(p.reads, h)
	g.events = append(g.events, accessEvent{pass: id, handle: h, kind: accessRead})
}

// Write declares that the pass writes h. A pass that writes a resource
// another pass subsequently reads must execute before that reader.
func (g *Graph) Write(id PassID, h resource.Handle) {
	p := g.pass(id)
	p.writes = append(p.writes, h)
	g.events = append(g.events, accessEvent{pass: id, handle: h, kind: accessWrite})
}

// CreateTransient declares a new frame-scoped resource produced by the
// pass and returns its handle. The backend allocation is deferred until
// execution, so culled passes never trigger one.
func (g *Graph) CreateTransient(id PassID, desc backend.Descriptor) resource.Handle {
	p := g.pass(id)
	h := g.table.Declare(desc)
	p.creates = append(p.creates, h)
	g.events = append(g.events, accessEvent{pass: id, handle: h, kind: accessCreate})
	return h
}

// SetOutput marks h as a final output of the frame. Outputs anchor
// dead-pass culling, are never culled themselves, and are not released
// early by the executor.
func (g *Graph) SetOutput(h resource.Handle) {
	if _, ok := g.outSet[h]; ok {
		return
	}
	g.outSet[h] = struct{}{}
	g.outputs = append(g.outputs, h)
}

// MarkSideEffect exempts the pass from dead-pass culling. Use for passes
// whose writes target state outside the graph (e.g. an external buffer)
// and are therefore invisible to output reachability.
func (g *Graph) MarkSideEffect(id PassID) {
	g.pass(id).sideEffect = true
}

// PassCount returns the number of declared passes.
func (g *Graph) PassCount() int { return len(g.passes) }

// Outputs returns the declared output handles in declaration order.
func (g *Graph) Outputs() []resource.Handle {
	out := make([]resource.Handle, len(g.outputs))
	copy(out, g.outputs)
	return out
}
