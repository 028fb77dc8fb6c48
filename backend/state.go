package backend

import "fmt"

// State is the usage state of a resource as seen by the GPU.
//
// The graph compiler tracks the state of every resource across the ordered
// pass sequence and emits a barrier whenever a pass requires a state
// different from the resource's last recorded one. Backends translate a
// barrier into whatever their API needs (image layout transition, cache
// flush, or nothing at all for APIs that track usage internally).
type State uint8

const (
	// StateUndefined is the state of a freshly allocated resource.
	StateUndefined State = iota

	// StateRenderTarget means the resource is written as a color or depth
	// attachment.
	StateRenderTarget

	// StateShaderRead means the resource is sampled or read by shaders.
	StateShaderRead

	// StateCopySrc means the resource is the source of a copy.
	StateCopySrc

	// StateCopyDst means the resource is the destination of a copy or a
	// non-attachment write.
	StateCopyDst

	// StatePresent means the resource is handed to the presentation engine.
	StatePresent
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUndefined:
		return "undefined"
	case StateRenderTarget:
		return "render-target"
	case StateShaderRead:
		return "shader-read"
	case StateCopySrc:
		return "copy-src"
	case StateCopyDst:
		return "copy-dst"
	case StatePresent:
		return "present"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}
