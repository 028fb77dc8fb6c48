// Package resource implements the handle-based GPU resource table used by
// the frame graph.
//
// Resources are referenced exclusively through generation-checked index
// handles (arena + index), never through pointers. A [Handle] is a small
// copyable value; it is valid only while its generation matches the table
// slot's current generation, so any handle kept after a free is detectably
// stale instead of silently aliasing whatever reused the slot.
//
// The index space is partitioned between persistent resources, which keep
// stable handles across frames, and transient resources, which are scoped
// to a single frame's graph execution. The partition guarantees that the
// per-frame generation churn of transient slots can never invalidate a
// persistent handle.
//
// Transient allocation is two-phase: [Table.Declare] registers a
// descriptor without touching the backend, and [Table.Allocate]
// materializes the backend object later, at the start of the resource's
// computed lifetime window. Passes culled from the graph therefore never
// cause a real allocation. Freed transient objects are parked in an alias
// pool keyed by descriptor compatibility and reused by later allocations,
// which is observable only as a reduced backend allocation count.
package resource
