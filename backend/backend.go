package backend

import "errors"

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrAllocationFailed is returned when the backend cannot satisfy a
	// descriptor, typically because device memory is exhausted. Callers may
	// treat it as recoverable: drop optional passes and retry, or abandon
	// the frame.
	ErrAllocationFailed = errors.New("backend: allocation failed")
)

// Object is an opaque backend resource. The graph stores Objects in the
// resource table and hands them back to the backend for barriers and
// release; it never inspects them.
type Object any

// Work is a deferred unit of recorded pass work. It is built by the caller
// when declaring a pass and invoked exactly once during execution, after
// the pass's barriers have been issued.
type Work func() error

// Device is the primitive graphics-API contract the frame graph executes
// against.
//
// A Device must not be shared between frames that are in flight
// simultaneously unless the implementation documents otherwise. The
// headless device is safe for concurrent submission and is used by the
// parallel executor tests.
type Device interface {
	// Name returns the backend identifier (e.g., "headless", "wgpu").
	Name() string

	// Init initializes the device.
	// It must be called before any other operation.
	Init() error

	// Close releases all device resources.
	// The device must not be used after Close.
	Close()

	// Allocate creates a backend resource satisfying the descriptor.
	// Returns an error wrapping ErrAllocationFailed when the descriptor
	// cannot be satisfied.
	Allocate(desc Descriptor) (Object, error)

	// Release destroys a resource previously returned by Allocate.
	// Releasing a nil object is a no-op.
	Release(obj Object)

	// InsertBarrier transitions a resource from one usage state to
	// another. The transition takes effect for all work submitted after
	// the call.
	InsertBarrier(obj Object, from, to State)

	// Submit runs a unit of recorded work. Submission is fire-and-forget:
	// the call returns once the work has been handed to the GPU queue, not
	// when the GPU has finished it.
	Submit(work Work) error
}

// Recycler is implemented by devices that want notice when a freed
// resource is handed back out by the transient alias pool. The contents
// and usage state of recycled memory are undefined; implementations reset
// whatever tracking they keep. Optional.
type Recycler interface {
	Recycle(obj Object)
}

// Readbacker is implemented by devices that can copy a resource's
// contents back to the CPU. Optional: the capture helpers type-assert
// for it.
type Readbacker interface {
	// Readback returns the raw bytes of the resource. For textures the
	// layout is tightly packed rows of 4-byte pixels.
	Readback(obj Object) ([]byte, error)
}
