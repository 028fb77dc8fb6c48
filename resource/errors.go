package resource

import "errors"

// Resource table errors. Stale and unknown handles indicate caller bugs:
// they surface loudly and are never retried.
var (
	// ErrStaleHandle is returned when a handle's generation no longer
	// matches its table slot, i.e. the resource was freed (and the slot
	// possibly reused) after the handle was taken.
	ErrStaleHandle = errors.New("resource: stale handle")

	// ErrUnknownHandle is returned when a handle does not reference any
	// slot in the table.
	ErrUnknownHandle = errors.New("resource: unknown handle")

	// ErrNotAllocated is returned when resolving a declared transient
	// resource whose backend object has not been materialized yet. During
	// graph execution this indicates a lifetime-computation bug.
	ErrNotAllocated = errors.New("resource: not allocated")
)
