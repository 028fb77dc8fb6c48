package backend

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Kind identifies the class of a GPU resource.
type Kind uint8

const (
	// KindBuffer is a linear GPU buffer.
	KindBuffer Kind = iota + 1

	// KindTexture is a 2D texture.
	KindTexture

	// KindSampler is a texture sampler.
	KindSampler
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindTexture:
		return "texture"
	case KindSampler:
		return "sampler"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Descriptor describes a GPU resource to be allocated.
// It is immutable once a resource has been created from it.
//
// Buffer resources use Size and BufferUsage; textures use Width, Height,
// Format and TextureUsage. Samplers carry no parameters beyond the label.
type Descriptor struct {
	// Label is an optional debug label.
	Label string

	// Kind is the resource class.
	Kind Kind

	// Size is the buffer size in bytes (buffers only).
	Size uint64

	// Width is the texture width in pixels (textures only).
	Width uint32

	// Height is the texture height in pixels (textures only).
	Height uint32

	// Format is the texture pixel format (textures only).
	Format gputypes.TextureFormat

	// TextureUsage specifies how a texture will be used.
	TextureUsage gputypes.TextureUsage

	// BufferUsage specifies how a buffer will be used.
	BufferUsage gputypes.BufferUsage
}

// ByteSize returns the backing memory size of the described resource.
// Textures assume 4 bytes per pixel, which holds for every 8-bit RGBA
// format the graph allocates; samplers occupy no addressable memory.
func (d Descriptor) ByteSize() uint64 {
	switch d.Kind {
	case KindBuffer:
		return d.Size
	case KindTexture:
		return uint64(d.Width) * uint64(d.Height) * 4
	default:
		return 0
	}
}

// Compatible reports whether a freed resource created from d can back a
// new resource described by other. Used by the transient alias pool:
// exact kind, size and usage match so the reuse is always safe.
func (d Descriptor) Compatible(other Descriptor) bool {
	if d.Kind != other.Kind {
		return false
	}
	switch d.Kind {
	case KindBuffer:
		return d.Size == other.Size && d.BufferUsage == other.BufferUsage
	case KindTexture:
		return d.Width == other.Width && d.Height == other.Height &&
			d.Format == other.Format && d.TextureUsage == other.TextureUsage
	default:
		return true
	}
}

// PoolKey returns a comparable value identifying d's compatibility class.
// Two descriptors with equal keys are Compatible.
func (d Descriptor) PoolKey() PoolKey {
	return PoolKey{
		Kind:         d.Kind,
		Size:         d.Size,
		Width:        d.Width,
		Height:       d.Height,
		Format:       d.Format,
		TextureUsage: d.TextureUsage,
		BufferUsage:  d.BufferUsage,
	}
}

// PoolKey is the comparable compatibility class of a Descriptor.
// The debug label is deliberately excluded.
type PoolKey struct {
	Kind         Kind
	Size         uint64
	Width        uint32
	Height       uint32
	Format       gputypes.TextureFormat
	TextureUsage gputypes.TextureUsage
	BufferUsage  gputypes.BufferUsage
}
