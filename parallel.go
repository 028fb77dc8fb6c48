package framegraph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/framegraph/internal/parallel"
	"github.com/gogpu/framegraph/resource"
)

// ExecuteParallel runs the plan with independent passes submitted
// concurrently. Passes are grouped into waves by dependency depth: a pass
// runs in the first wave after all its predecessors' waves, so no pass is
// ever reordered relative to a computed dependency edge, and every
// barrier is issued at the same point the sequential executor would
// issue it.
//
// All resource-table mutation (allocation, binding, release) happens on
// the calling goroutine; only the recorded work is submitted from worker
// goroutines, so the device must be safe for concurrent Submit calls.
// workers <= 0 uses GOMAXPROCS.
//
// The topological order only defines a valid serialization; this executor
// exploits the freedom the dependency edges leave open.
func (e *Executor) ExecuteParallel(plan *Plan, workers int) (ExecStats, error) {
	statsBefore := e.table.Stats()
	var stats ExecStats
	stats.PassesCulled = len(plan.culled)

	pool := parallel.NewWorkerPool(workers)
	defer pool.Close()

	waves := planWaves(plan)
	for _, wave := range waves {
		// Sequential part: materialize resources, issue barriers and
		// bind, in plan order within the wave. Independent passes in one
		// wave may share a read resource, so each handle is bound once
		// per wave; bound grows as binds succeed so a failure mid-wave
		// unwinds exactly what was bound.
		var bound []resource.Handle
		seen := make(map[resource.Handle]struct{})
		for _, idx := range wave {
			entry := &plan.entries[idx]
			for _, h := range entry.Allocate {
				if err := e.table.Allocate(h); err != nil {
					e.unwindWave(bound)
					e.table.EndFrame()
					e.finishStats(&stats, statsBefore)
					return stats, err
				}
			}
			for _, b := range entry.Barriers {
				res, err := e.table.Get(b.Handle)
				if err != nil {
					e.unwindWave(bound)
					e.table.EndFrame()
					e.finishStats(&stats, statsBefore)
					return stats, fmt.Errorf("framegraph: barrier before %q: %w",
						entry.Pass.name, err)
				}
				e.device.InsertBarrier(res.Obj, b.From, b.To)
				stats.Barriers++
			}
			for _, h := range entry.Pass.handles() {
				if _, ok := seen[h]; ok {
					continue
				}
				if err := e.table.Bind(h); err != nil {
					e.unwindWave(bound)
					e.table.EndFrame()
					e.finishStats(&stats, statsBefore)
					return stats, fmt.Errorf("framegraph: bind for %q: %w",
						entry.Pass.name, err)
				}
				seen[h] = struct{}{}
				bound = append(bound, h)
			}
		}

		// Concurrent part: submit the wave's recorded work.
		var (
			wg       sync.WaitGroup
			errMu    sync.Mutex
			waveErrs []error
		)
		for _, idx := range wave {
			entry := &plan.entries[idx]
			if entry.Pass.work == nil {
				continue
			}
			ctx := &PassContext{table: e.table, device: e.device, pass: entry.Pass}
			work := entry.Pass.work
			name := entry.Pass.name
			wg.Add(1)
			pool.Submit(func() {
				defer wg.Done()
				if err := e.device.Submit(func() error { return work(ctx) }); err != nil {
					errMu.Lock()
					waveErrs = append(waveErrs, fmt.Errorf("framegraph: pass %q: %w", name, err))
					errMu.Unlock()
				}
			})
		}
		wg.Wait()

		// Sequential part: unbind and release, in plan order.
		e.unwindWave(bound)
		if len(waveErrs) > 0 {
			e.table.EndFrame()
			e.finishStats(&stats, statsBefore)
			return stats, errors.Join(waveErrs...)
		}
		for _, idx := range wave {
			entry := &plan.entries[idx]
			stats.PassesExecuted++
			for _, h := range entry.Release {
				if err := e.table.Free(h); err != nil {
					e.table.EndFrame()
					e.finishStats(&stats, statsBefore)
					return stats, fmt.Errorf("framegraph: release after %q: %w",
						entry.Pass.name, err)
				}
			}
		}
	}

	e.table.EndFrame()
	e.finishStats(&stats, statsBefore)
	logger().Info("framegraph: frame executed (parallel)",
		"passes", stats.PassesExecuted, "waves", len(waves))
	return stats, nil
}

// unwindWave unbinds everything a wave bound, in order.
func (e *Executor) unwindWave(bound []resource.Handle) {
	for _, h := range bound {
		_ = e.table.Unbind(h)
	}
}

// planWaves groups plan entries by dependency depth: wave k holds every
// entry whose longest predecessor chain has length k. Entries within a
// wave keep their plan order.
func planWaves(plan *Plan) [][]int {
	depth := make([]int, len(plan.entries))
	maxDepth := -1
	for i := range plan.entries {
		d := 0
		for _, dep := range plan.deps[i] {
			// deps reference earlier entries only, so depth[dep] is final.
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[i] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	waves := make([][]int, maxDepth+1)
	for i := range plan.entries {
		waves[depth[i]] = append(waves[depth[i]], i)
	}
	return waves
}
