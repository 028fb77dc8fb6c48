// Package framegraph builds, compiles and executes per-frame render
// graphs over a handle-based GPU resource table.
//
// A frame is described by declaring passes on a [Graph]: each pass names
// the resources it reads, writes and creates, and carries an opaque unit
// of recorded work that captures only handles, never backend pointers.
// [Graph.Compile] turns the declarations into an executable [Plan]:
//
//  1. Dependency edges are derived from the declaration order of reads
//     and writes per resource, and the passes are topologically sorted
//     with a deterministic tie-break (declaration order).
//  2. Passes whose results never reach a declared output are culled;
//     their transient resources are never allocated.
//  3. Each surviving transient resource gets a lifetime window from its
//     first to its last referencing pass.
//  4. Usage-state transitions (barriers) are inserted wherever a pass
//     needs a resource in a different state than it was left in.
//
// [Executor.Execute] walks the plan in order: it materializes transient
// resources whose window begins, issues the recorded barriers, submits
// the pass work with handles resolved through the [resource.Table], and
// frees transients whose window ends. All structural errors (cycles,
// unknown or stale handles) are detected during Compile, before any
// backend call, so a failed frame never leaves partial GPU state behind.
//
// # Minimal example
//
//	dev := backend.MustDefault()
//	_ = dev.Init()
//	table := resource.NewTable(dev)
//
//	g := framegraph.NewGraph(table)
//	shadow := g.AddPass("shadow", drawShadows)
//	shadowMap := g.CreateTransient(shadow, shadowMapDesc)
//
//	lighting := g.AddPass("lighting", drawLighting)
//	g.Read(lighting, shadowMap)
//	color := g.CreateTransient(lighting, colorDesc)
//	g.SetOutput(color)
//
//	plan, err := g.Compile()
//	if err != nil {
//	    // frame skipped, previous image stays on screen
//	}
//	stats, err := framegraph.NewExecutor(table, dev).Execute(plan)
//
// Graphs are built fresh every frame and never persisted. The resource
// table is owned by one frame's build/compile/execute cycle at a time;
// persistent resources created with [resource.Table.CreatePersistent]
// keep stable handles across frames.
package framegraph
