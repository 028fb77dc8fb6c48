// Package backend defines the primitive graphics-API contract consumed by
// the frame graph.
//
// The frame graph never talks to a concrete graphics API. Everything it
// needs from one is captured by the [Device] interface: allocate a resource
// from a descriptor, release it, insert a usage-state barrier, and submit a
// unit of recorded work. Any implementation of those four primitives can
// execute a compiled plan.
//
// Backends are registered via [Register] and selected via [Get] or
// [Default]. The package ships a headless device ([HeadlessDevice]) that
// allocates CPU memory and counts every primitive call; it is the default
// when no GPU backend is linked in and is what the test suite runs against.
// A wgpu-backed device lives in the backend/wgpu sub-package.
package backend
