package wgpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph/backend"
)

func init() {
	backend.Register(backend.DeviceWGPU, func() backend.Device {
		return &Device{}
	})
}

// object is the backend.Object a Device hands out: the HAL resource plus
// the descriptor it was allocated from.
type object struct {
	buffer  hal.Buffer
	texture hal.Texture
	sampler hal.Sampler
	desc    backend.Descriptor
}

// Device allocates buffers and textures through the gogpu/wgpu HAL layer.
//
// A Device either owns its HAL device (registry-created, initialized by
// Init) or borrows one (New, FromProvider). Borrowed devices are not
// destroyed on Close.
//
// Device is safe for concurrent use; HAL resource creation and work
// submission are serialized where the HAL requires it.
type Device struct {
	mu       sync.Mutex
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance
	owned    bool
	ready    bool
}

// New wraps an existing HAL device and queue. The caller keeps ownership;
// Close will not destroy them.
func New(device hal.Device, queue hal.Queue) *Device {
	return &Device{device: device, queue: queue, ready: true}
}

// FromProvider shares the GPU device a windowing/context provider owns.
// Beyond the gpucontext surface, the provider must implement HalDevice()
// any and HalQueue() any returning hal.Device and hal.Queue (gogpu's
// GPUContextProvider does).
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}
	return New(device, queue), nil
}

// Name returns the backend name.
func (d *Device) Name() string { return backend.DeviceWGPU }

// Init brings up a standalone GPU device when none was provided. It picks
// the first discrete or integrated adapter, falling back to whatever the
// instance exposes. No-op for devices wrapping a shared HAL device.
func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ready {
		return nil
	}

	b, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("wgpu: %w: vulkan backend not compiled in",
			backend.ErrBackendNotAvailable)
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("wgpu: %w: no GPU adapters found", backend.ErrBackendNotAvailable)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("wgpu: open device: %w", err)
	}

	d.instance = instance
	d.device = openDev.Device
	d.queue = openDev.Queue
	d.owned = true
	d.ready = true
	return nil
}

// Close releases an owned device. Borrowed devices are left alone.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ready {
		return
	}
	d.ready = false
	if !d.owned {
		return
	}
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
}

// Allocate creates the HAL resource the descriptor asks for.
func (d *Device) Allocate(desc backend.Descriptor) (backend.Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ready {
		return nil, backend.ErrNotInitialized
	}

	switch desc.Kind {
	case backend.KindBuffer:
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: desc.Label,
			Size:  desc.Size,
			Usage: desc.BufferUsage,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: %w: buffer %q: %v",
				backend.ErrAllocationFailed, desc.Label, err)
		}
		return &object{buffer: buf, desc: desc}, nil

	case backend.KindTexture:
		tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
			Label: desc.Label,
			Size: hal.Extent3D{
				Width:              desc.Width,
				Height:             desc.Height,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        desc.Format,
			Usage:         desc.TextureUsage,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: %w: texture %q: %v",
				backend.ErrAllocationFailed, desc.Label, err)
		}
		return &object{texture: tex, desc: desc}, nil

	case backend.KindSampler:
		smp, err := d.device.CreateSampler(&hal.SamplerDescriptor{
			Label:        desc.Label,
			AddressModeU: gputypes.AddressModeClampToEdge,
			AddressModeV: gputypes.AddressModeClampToEdge,
			AddressModeW: gputypes.AddressModeClampToEdge,
			MagFilter:    gputypes.FilterModeLinear,
			MinFilter:    gputypes.FilterModeLinear,
			MipmapFilter: gputypes.FilterModeLinear,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: %w: sampler %q: %v",
				backend.ErrAllocationFailed, desc.Label, err)
		}
		return &object{sampler: smp, desc: desc}, nil

	default:
		return nil, fmt.Errorf("wgpu: unsupported resource kind %v", desc.Kind)
	}
}

// Release destroys the HAL resource behind obj. Foreign objects are
// ignored.
func (d *Device) Release(obj backend.Object) {
	o, ok := obj.(*object)
	if !ok {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ready {
		return
	}
	switch {
	case o.buffer != nil:
		d.device.DestroyBuffer(o.buffer)
		o.buffer = nil
	case o.texture != nil:
		d.device.DestroyTexture(o.texture)
		o.texture = nil
	case o.sampler != nil:
		d.device.DestroySampler(o.sampler)
		o.sampler = nil
	}
}

// InsertBarrier records a usage-state transition. WebGPU tracks resource
// usage internally, so no API call is issued.
func (d *Device) InsertBarrier(obj backend.Object, from, to backend.State) {
	_ = obj
	_ = from
	_ = to
}

// Submit runs recorded pass work. The work encodes and submits its own
// command buffers through the HAL queue.
func (d *Device) Submit(work backend.Work) error {
	d.mu.Lock()
	ready := d.ready
	d.mu.Unlock()
	if !ready {
		return backend.ErrNotInitialized
	}
	return work()
}

// HalDevice returns the underlying HAL device for pass work that needs
// to encode commands directly.
func (d *Device) HalDevice() hal.Device { return d.device }

// HalQueue returns the underlying HAL queue.
func (d *Device) HalQueue() hal.Queue { return d.queue }

// Buffer unwraps an allocated buffer from a backend object.
func Buffer(obj backend.Object) (hal.Buffer, bool) {
	o, ok := obj.(*object)
	if !ok || o.buffer == nil {
		return nil, false
	}
	return o.buffer, true
}

// Texture unwraps an allocated texture from a backend object.
func Texture(obj backend.Object) (hal.Texture, bool) {
	o, ok := obj.(*object)
	if !ok || o.texture == nil {
		return nil, false
	}
	return o.texture, true
}
