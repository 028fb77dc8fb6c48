package framegraph

import (
	"container/heap"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/resource"
)

// Barrier is a usage-state transition issued immediately before a pass.
type Barrier struct {
	// Handle is the resource being transitioned.
	Handle resource.Handle

	// From is the state the resource was last left in.
	From backend.State

	// To is the state the upcoming pass requires.
	To backend.State
}

// PlanEntry is one surviving pass with its execution annotations.
type PlanEntry struct {
	// Pass is the surviving pass node.
	Pass *PassNode

	// Barriers are issued before the pass work.
	Barriers []Barrier

	// Allocate lists transient handles whose lifetime window begins at
	// this pass; the executor materializes them before the barriers.
	Allocate []resource.Handle

	// Release lists transient handles whose lifetime window ends at this
	// pass; the executor frees them after the pass work.
	Release []resource.Handle
}

// Plan is an executable compiled graph: the surviving passes in a valid
// order with barriers and transient lifetimes resolved. A Plan is created
// and consumed within a single frame.
type Plan struct {
	entries []PlanEntry

	// deps[i] lists entry indices that must execute before entry i.
	// Used by the parallel executor; the sequential order already
	// satisfies them.
	deps [][]int

	culled []string
}

// Len returns the number of surviving passes.
func (p *Plan) Len() int { return len(p.entries) }

// Entry returns the i-th plan entry in execution order.
func (p *Plan) Entry(i int) *PlanEntry { return &p.entries[i] }

// PassNames returns the execution order as pass names.
func (p *Plan) PassNames() []string {
	names := make([]string, len(p.entries))
	for i := range p.entries {
		names[i] = p.entries[i].Pass.name
	}
	return names
}

// Culled returns the names of passes removed by dead-pass culling,
// in declaration order.
func (p *Plan) Culled() []string {
	out := make([]string, len(p.culled))
	copy(out, p.culled)
	return out
}

// depEdges is the dependency structure derived from declaration order.
type depEdges struct {
	// adj[u] lists passes that must run after pass u (deduplicated).
	adj [][]PassID

	// indegree[v] counts distinct predecessors of v.
	indegree []int

	// producers[v] lists passes whose writes pass v reads (RAW only).
	// Culling walks these; WAR and WAW edges order passes but do not
	// carry liveness.
	producers [][]PassID

	// edgeHandles records, per (u,v) edge, the resources inducing it.
	// Used by the DOT/Mermaid exports.
	edgeHandles map[[2]PassID][]resource.Handle
}

// buildEdges derives dependency edges from the per-handle declaration
// order of reads and writes. For every handle: each reader depends on the
// most recent prior writer (RAW); a writer depends on every reader since
// the previous write (WAR) and on the previous writer (WAW, which keeps
// write order deterministic). Two reads with no intervening write induce
// no edge.
func (g *Graph) buildEdges() *depEdges {
	n := len(g.passes)
	e := &depEdges{
		adj:         make([][]PassID, n),
		indegree:    make([]int, n),
		producers:   make([][]PassID, n),
		edgeHandles: make(map[[2]PassID][]resource.Handle),
	}
	seen := make(map[[2]PassID]struct{})

	addEdge := func(from, to PassID, h resource.Handle, raw bool) {
		if from == to {
			return
		}
		key := [2]PassID{from, to}
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			e.adj[from] = append(e.adj[from], to)
			e.indegree[to]++
		}
		e.edgeHandles[key] = append(e.edgeHandles[key], h)
		if raw {
			e.producers[to] = append(e.producers[to], from)
		}
	}

	type handleState struct {
		lastWriter PassID
		hasWriter  bool
		readers    []PassID
	}
	states := make(map[resource.Handle]*handleState)
	stateFor := func(h resource.Handle) *handleState {
		s, ok := states[h]
		if !ok {
			s = &handleState{}
			states[h] = s
		}
		return s
	}

	for _, ev := range g.events {
		s := stateFor(ev.handle)
		switch ev.kind {
		case accessRead:
			if s.hasWriter {
				addEdge(s.lastWriter, ev.pass, ev.handle, true)
			}
			s.readers = append(s.readers, ev.pass)
		case accessWrite, accessCreate:
			if s.hasWriter {
				addEdge(s.lastWriter, ev.pass, ev.handle, false)
			}
			for _, r := range s.readers {
				addEdge(r, ev.pass, ev.handle, false)
			}
			s.lastWriter = ev.pass
			s.hasWriter = true
			s.readers = s.readers[:0]
		}
	}
	return e
}

// passHeap is a min-heap of PassIDs ordered by declaration index. It
// gives the topological sort its deterministic tie-break: among passes
// with no remaining constraint, the earliest-declared runs first.
type passHeap []PassID

func (h passHeap) Len() int           { return len(h) }
func (h passHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h passHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *passHeap) Push(x any)        { *h = append(*h, x.(PassID)) }
func (h *passHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoSort runs Kahn's algorithm over the edges. On a cycle it returns a
// *CycleError naming the passes on the cycle.
func (g *Graph) topoSort(e *depEdges) ([]PassID, error) {
	indegree := make([]int, len(g.passes))
	copy(indegree, e.indegree)

	ready := &passHeap{}
	for id := range g.passes {
		if indegree[id] == 0 {
			heap.Push(ready, PassID(id))
		}
	}

	order := make([]PassID, 0, len(g.passes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(PassID)
		order = append(order, id)
		for _, next := range e.adj[id] {
			indegree[next]--
			if indegree[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	if len(order) != len(g.passes) {
		return nil, &CycleError{Passes: g.cyclePasses(e, indegree)}
	}
	return order, nil
}

// cyclePasses names the passes that lie on a dependency cycle. Kahn's
// algorithm already consumed everything upstream of the cycles, so the
// residual (indegree > 0) nodes are the cycles plus their downstream
// chains; stripping residual nodes with no residual successor, in turn,
// removes the chains and leaves the cycles themselves.
func (g *Graph) cyclePasses(e *depEdges, indegree []int) []string {
	blocked := make([]bool, len(g.passes))
	outdeg := make([]int, len(g.passes))
	rev := make([][]PassID, len(g.passes))
	for id := range g.passes {
		blocked[id] = indegree[id] > 0
	}
	for id := range g.passes {
		if !blocked[id] {
			continue
		}
		for _, next := range e.adj[id] {
			if blocked[next] {
				outdeg[id]++
				rev[next] = append(rev[next], PassID(id))
			}
		}
	}

	var strip []PassID
	for id := range g.passes {
		if blocked[id] && outdeg[id] == 0 {
			strip = append(strip, PassID(id))
		}
	}
	for len(strip) > 0 {
		id := strip[len(strip)-1]
		strip = strip[:len(strip)-1]
		blocked[id] = false
		for _, prev := range rev[id] {
			outdeg[prev]--
			if outdeg[prev] == 0 {
				strip = append(strip, prev)
			}
		}
	}

	var names []string
	for id, p := range g.passes {
		if blocked[id] {
			names = append(names, p.name)
		}
	}
	return names
}

// cull computes backward reachability from the outputs. A pass is live if
// it writes or creates an output handle, is marked as having side
// effects, or produces a resource some live pass reads.
func (g *Graph) cull(e *depEdges) []bool {
	live := make([]bool, len(g.passes))
	var stack []PassID

	markLive := func(id PassID) {
		if !live[id] {
			live[id] = true
			stack = append(stack, id)
		}
	}

	for _, p := range g.passes {
		if p.sideEffect {
			markLive(p.id)
			continue
		}
		for _, ev := range [][]resource.Handle{p.writes, p.creates} {
			for _, h := range ev {
				if _, isOut := g.outSet[h]; isOut {
					markLive(p.id)
				}
			}
		}
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, producer := range e.producers[id] {
			markLive(producer)
		}
	}
	return live
}

// requiredState returns the usage state a pass needs h in.
func requiredState(writes bool, desc backend.Descriptor) backend.State {
	if !writes {
		return backend.StateShaderRead
	}
	if desc.Kind == backend.KindTexture &&
		desc.TextureUsage&gputypes.TextureUsageRenderAttachment != 0 {
		return backend.StateRenderTarget
	}
	return backend.StateCopyDst
}

// CompileOptions adjusts graph compilation. The zero value is the
// default behavior.
type CompileOptions struct {
	// DisableCulling keeps passes whose results never reach a declared
	// output. Useful when debugging a graph that culls more than
	// expected.
	DisableCulling bool
}

// Compile transforms the graph into an executable plan.
//
// All failure modes are structural and detected before any backend call:
// a dependency cycle yields a *CycleError (errors.Is ErrGraphCycle), and a
// declaration referencing a handle missing from the resource table yields
// an error wrapping resource.ErrUnknownHandle or resource.ErrStaleHandle.
// On error no plan is produced; the frame is abandoned and the transient
// declarations made while building are swept, staling their handles, so
// the caller can simply drop the graph and build the next frame's.
//
// Compiling the same graph twice yields an identical plan.
func (g *Graph) Compile() (*Plan, error) {
	return g.CompileWithOptions(CompileOptions{})
}

// abandonFrame sweeps the frame's transient declarations after a failed
// compile so their handles go stale instead of lingering into later
// frames. Nothing is allocated or bound yet, so the sweep only reclaims
// declared slots.
func (g *Graph) abandonFrame(err error) error {
	logger().Warn("framegraph: compile failed", "err", err)
	g.table.EndFrame()
	return err
}

// CompileWithOptions compiles the graph with explicit options.
func (g *Graph) CompileWithOptions(opts CompileOptions) (*Plan, error) {
	// Validate every declared handle before doing any work.
	for _, ev := range g.events {
		if _, err := g.table.Describe(ev.handle); err != nil {
			return nil, g.abandonFrame(fmt.Errorf("framegraph: pass %q declares %v: %w",
				g.passes[ev.pass].name, ev.handle, err))
		}
	}
	for _, h := range g.outputs {
		if _, err := g.table.Describe(h); err != nil {
			return nil, g.abandonFrame(fmt.Errorf("framegraph: output %v: %w", h, err))
		}
	}

	edges := g.buildEdges()

	order, err := g.topoSort(edges)
	if err != nil {
		return nil, g.abandonFrame(err)
	}

	live := g.cull(edges)
	if opts.DisableCulling {
		for i := range live {
			live[i] = true
		}
	}

	plan := &Plan{}
	entryIndex := make(map[PassID]int, len(order))
	for _, id := range order {
		if !live[id] {
			continue
		}
		entryIndex[id] = len(plan.entries)
		plan.entries = append(plan.entries, PlanEntry{Pass: g.passes[id]})
	}
	for _, p := range g.passes {
		if !live[p.id] {
			plan.culled = append(plan.culled, p.name)
		}
	}

	// Record surviving dependency edges for the parallel executor.
	plan.deps = make([][]int, len(plan.entries))
	for from, targets := range edges.adj {
		fi, fromLive := entryIndex[PassID(from)]
		if !fromLive {
			continue
		}
		for _, to := range targets {
			if ti, toLive := entryIndex[to]; toLive {
				plan.deps[ti] = append(plan.deps[ti], fi)
			}
		}
	}

	// Transient lifetime windows over the surviving order.
	first := make(map[resource.Handle]int)
	last := make(map[resource.Handle]int)
	for i := range plan.entries {
		for _, h := range plan.entries[i].Pass.handles() {
			if h.IsPersistent() {
				continue
			}
			if _, ok := first[h]; !ok {
				first[h] = i
			}
			last[h] = i
		}
	}
	for i := range plan.entries {
		for _, h := range plan.entries[i].Pass.handles() {
			if h.IsPersistent() {
				continue
			}
			if fi, ok := first[h]; ok && fi == i {
				plan.entries[i].Allocate = append(plan.entries[i].Allocate, h)
				delete(first, h)
			}
			if _, isOut := g.outSet[h]; isOut {
				continue // outputs survive to frame end
			}
			if li, ok := last[h]; ok && li == i {
				plan.entries[i].Release = append(plan.entries[i].Release, h)
				delete(last, h)
			}
		}
	}

	// Barrier insertion: track each resource's usage state across the
	// ordered passes and transition wherever a pass needs it different.
	current := make(map[resource.Handle]backend.State)
	for i := range plan.entries {
		p := plan.entries[i].Pass
		writeSet := make(map[resource.Handle]bool, len(p.writes)+len(p.creates))
		for _, h := range p.writes {
			writeSet[h] = true
		}
		for _, h := range p.creates {
			writeSet[h] = true
		}
		for _, h := range p.handles() {
			desc, _ := g.table.Describe(h)
			want := requiredState(writeSet[h], desc)
			have := current[h] // zero value is StateUndefined
			if have == want {
				continue
			}
			plan.entries[i].Barriers = append(plan.entries[i].Barriers, Barrier{
				Handle: h,
				From:   have,
				To:     want,
			})
			current[h] = want
		}
	}

	logger().Info("framegraph: compiled",
		"passes", len(plan.entries), "culled", len(plan.culled))
	return plan, nil
}
