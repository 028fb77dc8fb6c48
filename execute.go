package framegraph

import (
	"fmt"

	"github.com/gogpu/framegraph/backend"
	"github.com/gogpu/framegraph/resource"
)

// PassContext is handed to recorded pass work during execution. It
// resolves the handles the pass declared; resolving anything else is a
// programmer error surfaced as ErrNotAllocated or ErrStaleHandle.
type PassContext struct {
	table  *resource.Table
	device backend.Device
	pass   *PassNode
}

// Resolve looks a handle up through the resource table.
func (c *PassContext) Resolve(h resource.Handle) (resource.Resource, error) {
	return c.table.Get(h)
}

// Device returns the backend device executing the frame.
func (c *PassContext) Device() backend.Device { return c.device }

// PassName returns the name of the executing pass.
func (c *PassContext) PassName() string { return c.pass.name }

// Reads returns the handles the pass declared as reads, in declaration
// order.
func (c *PassContext) Reads() []resource.Handle { return c.pass.reads }

// Writes returns the handles the pass declared as writes, in declaration
// order.
func (c *PassContext) Writes() []resource.Handle { return c.pass.writes }

// Created returns the first resource the pass created, if any.
func (c *PassContext) Created() (resource.Handle, bool) {
	if len(c.pass.creates) == 0 {
		return resource.Nil, false
	}
	return c.pass.creates[0], true
}

// ExecStats summarizes one executed frame.
type ExecStats struct {
	// PassesExecuted counts submitted passes.
	PassesExecuted int

	// PassesCulled counts passes the compiler dropped.
	PassesCulled int

	// Barriers counts issued state transitions.
	Barriers int

	// Allocations counts backend allocations made this frame.
	Allocations int

	// PoolHits counts transient allocations served by the alias pool.
	PoolHits int
}

// Executor walks compiled plans against a resource table and a device.
//
// Execution is single-threaded and synchronous: no backend call for pass
// N+1 is issued before pass N's work has been fully submitted. Submission
// itself is fire-and-forget (the device does not wait for GPU completion),
// which is what allows CPU/GPU pipelining across frames.
type Executor struct {
	table  *resource.Table
	device backend.Device
}

// NewExecutor creates an executor over table and device.
func NewExecutor(table *resource.Table, device backend.Device) *Executor {
	return &Executor{table: table, device: device}
}

// Execute runs the plan in order: for each entry it materializes the
// transient resources whose lifetime window begins, issues the recorded
// barriers, submits the pass work with resources bound, and frees the
// transients whose window ends. The transient arena is swept when the
// frame completes, staling every remaining frame-scoped handle.
//
// An allocation failure mid-frame aborts execution and is returned
// wrapping backend.ErrAllocationFailed; already-submitted work stays in
// flight and the transient arena is swept so the caller can apply its
// degraded-frame policy and build the next frame normally. Any stale or
// unresolvable handle here indicates a compiler invariant violation and
// is returned as a fatal error.
func (e *Executor) Execute(plan *Plan) (ExecStats, error) {
	statsBefore := e.table.Stats()
	var stats ExecStats
	stats.PassesCulled = len(plan.culled)

	for i := range plan.entries {
		entry := &plan.entries[i]
		if err := e.runEntry(entry, &stats); err != nil {
			e.table.EndFrame()
			e.finishStats(&stats, statsBefore)
			logger().Warn("framegraph: frame aborted",
				"pass", entry.Pass.name, "err", err)
			return stats, err
		}
		stats.PassesExecuted++
	}

	e.table.EndFrame()
	e.finishStats(&stats, statsBefore)
	logger().Info("framegraph: frame executed",
		"passes", stats.PassesExecuted,
		"barriers", stats.Barriers,
		"allocations", stats.Allocations,
		"poolHits", stats.PoolHits)
	return stats, nil
}

// ExecuteOptions adjusts plan execution. The zero value runs the plan
// sequentially.
type ExecuteOptions struct {
	// Parallel submits independent passes concurrently, wave by wave.
	Parallel bool
	// Workers caps the submission workers when Parallel is set.
	// Zero means one worker per CPU.
	Workers int
}

// ExecuteWithOptions executes the plan with explicit options.
func (e *Executor) ExecuteWithOptions(plan *Plan, opts ExecuteOptions) (ExecStats, error) {
	if opts.Parallel {
		return e.ExecuteParallel(plan, opts.Workers)
	}
	return e.Execute(plan)
}

func (e *Executor) finishStats(stats *ExecStats, before resource.Stats) {
	after := e.table.Stats()
	stats.Allocations = after.Allocations - before.Allocations
	stats.PoolHits = after.PoolHits - before.PoolHits
}

// runEntry executes one plan entry: allocate, barriers, bind, submit,
// unbind, release. Resources are unbound again on every exit path so an
// aborted frame never strands a Bound entry in the table.
func (e *Executor) runEntry(entry *PlanEntry, stats *ExecStats) error {
	for _, h := range entry.Allocate {
		if err := e.table.Allocate(h); err != nil {
			return err
		}
	}

	for _, b := range entry.Barriers {
		res, err := e.table.Get(b.Handle)
		if err != nil {
			return fmt.Errorf("framegraph: barrier before %q: %w", entry.Pass.name, err)
		}
		e.device.InsertBarrier(res.Obj, b.From, b.To)
		stats.Barriers++
		logger().Debug("framegraph: barrier",
			"pass", entry.Pass.name, "resource", res.Desc.Label,
			"from", b.From, "to", b.To)
	}

	var bound []resource.Handle
	unbind := func() {
		for _, h := range bound {
			_ = e.table.Unbind(h)
		}
	}
	for _, h := range entry.Pass.handles() {
		if err := e.table.Bind(h); err != nil {
			unbind()
			return fmt.Errorf("framegraph: bind for %q: %w", entry.Pass.name, err)
		}
		bound = append(bound, h)
	}

	if entry.Pass.work != nil {
		ctx := &PassContext{table: e.table, device: e.device, pass: entry.Pass}
		err := e.device.Submit(func() error {
			return entry.Pass.work(ctx)
		})
		if err != nil {
			unbind()
			return fmt.Errorf("framegraph: pass %q: %w", entry.Pass.name, err)
		}
	}
	unbind()

	for _, h := range entry.Release {
		if err := e.table.Free(h); err != nil {
			return fmt.Errorf("framegraph: release after %q: %w", entry.Pass.name, err)
		}
	}
	return nil
}
