package backend

import (
	"fmt"
	"log/slog"
	"sync"
)

// Backend name constants.
const (
	// DeviceHeadless is the name of the CPU-backed headless device.
	DeviceHeadless = "headless"
	// DeviceWGPU is the name of the Pure Go GPU device (gogpu/wgpu),
	// registered by the backend/wgpu sub-package.
	DeviceWGPU = "wgpu"
)

// HeadlessObject is the resource type allocated by HeadlessDevice.
// Data is sized from the descriptor and may be read and written by pass
// work, which makes the headless device usable for golden-image tests and
// frame capture without any GPU.
type HeadlessObject struct {
	// Desc is the descriptor the object was allocated from.
	Desc Descriptor

	// Data is the CPU backing store (ByteSize bytes).
	Data []byte

	// state is the last usage state recorded by InsertBarrier.
	state State
}

// HeadlessDevice is a CPU-backed Device that allocates plain memory and
// counts every primitive call. It validates barrier from-states against
// its own tracking, which turns compiler barrier bugs into loud test
// failures instead of silent GPU corruption.
//
// HeadlessDevice is safe for concurrent use once initialized.
type HeadlessDevice struct {
	mu          sync.Mutex
	initialized bool

	// budget limits total live allocation bytes; 0 means unlimited.
	budget uint64
	inUse  uint64

	stats DeviceStats
}

// DeviceStats counts primitive calls on a headless device.
type DeviceStats struct {
	// Allocations is the number of successful Allocate calls.
	Allocations int

	// Releases is the number of Release calls with a non-nil object.
	Releases int

	// Barriers is the number of InsertBarrier calls.
	Barriers int

	// Submissions is the number of Submit calls.
	Submissions int

	// Live is the number of currently live objects.
	Live int
}

// init registers the headless device on package import.
func init() {
	Register(DeviceHeadless, func() Device {
		return NewHeadlessDevice()
	})
}

// NewHeadlessDevice creates a new headless device with no memory budget.
func NewHeadlessDevice() *HeadlessDevice {
	return &HeadlessDevice{}
}

// SetBudget limits the total bytes of live allocations. Allocations that
// would exceed the budget fail with ErrAllocationFailed. A budget of 0
// removes the limit.
func (d *HeadlessDevice) SetBudget(bytes uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.budget = bytes
}

// Name returns the backend identifier.
func (d *HeadlessDevice) Name() string {
	return DeviceHeadless
}

// Init initializes the device.
func (d *HeadlessDevice) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = true
	return nil
}

// Close releases the device. Outstanding objects become invalid.
func (d *HeadlessDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false
	d.inUse = 0
	d.stats = DeviceStats{}
}

// Allocate creates a CPU-backed object for the descriptor.
func (d *HeadlessDevice) Allocate(desc Descriptor) (Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil, ErrNotInitialized
	}

	size := desc.ByteSize()
	if d.budget > 0 && d.inUse+size > d.budget {
		return nil, fmt.Errorf("%w: %q needs %d bytes, %d of %d in use",
			ErrAllocationFailed, desc.Label, size, d.inUse, d.budget)
	}

	d.inUse += size
	d.stats.Allocations++
	d.stats.Live++

	logger().Debug("headless: allocate",
		"label", desc.Label, "kind", desc.Kind, "bytes", size)

	return &HeadlessObject{
		Desc: desc,
		Data: make([]byte, size),
	}, nil
}

// Release destroys an object previously returned by Allocate.
func (d *HeadlessDevice) Release(obj Object) {
	if obj == nil {
		return
	}
	ho, ok := obj.(*HeadlessObject)
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.Releases++
	d.stats.Live--
	d.inUse -= ho.Desc.ByteSize()
	ho.Data = nil
}

// InsertBarrier records a state transition, validating the from-state
// against the object's tracked state. A mismatch indicates a compiler bug
// and is logged at Warn level rather than dropped.
func (d *HeadlessDevice) InsertBarrier(obj Object, from, to State) {
	ho, ok := obj.(*HeadlessObject)
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.Barriers++

	if ho.state != from {
		logger().Warn("headless: barrier from-state mismatch",
			"label", ho.Desc.Label,
			"tracked", ho.state, "from", from, "to", to)
	}
	ho.state = to
}

// Submit runs the recorded work synchronously.
func (d *HeadlessDevice) Submit(work Work) error {
	d.mu.Lock()
	if !d.initialized {
		d.mu.Unlock()
		return ErrNotInitialized
	}
	d.stats.Submissions++
	d.mu.Unlock()

	// Run outside the lock so independent passes can submit concurrently.
	return work()
}

// Recycle resets a pooled object handed back out by the alias pool.
// The usage state returns to undefined and the contents are zeroed so
// aliased frames stay deterministic.
func (d *HeadlessDevice) Recycle(obj Object) {
	ho, ok := obj.(*HeadlessObject)
	if !ok {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	ho.state = StateUndefined
	for i := range ho.Data {
		ho.Data[i] = 0
	}
}

// Readback returns a copy of the object's backing bytes.
func (d *HeadlessDevice) Readback(obj Object) ([]byte, error) {
	ho, ok := obj.(*HeadlessObject)
	if !ok {
		return nil, fmt.Errorf("backend: readback of foreign object %T", obj)
	}
	if ho.Data == nil {
		return nil, fmt.Errorf("backend: readback of released object %q", ho.Desc.Label)
	}
	out := make([]byte, len(ho.Data))
	copy(out, ho.Data)
	return out, nil
}

// Stats returns a snapshot of the device's primitive-call counters.
func (d *HeadlessDevice) Stats() DeviceStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// State returns the tracked usage state of a headless object.
// Exposed for barrier tests.
func (d *HeadlessDevice) State(obj Object) State {
	ho, ok := obj.(*HeadlessObject)
	if !ok {
		return StateUndefined
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return ho.state
}

// SetLogger is implemented so the root package can propagate its logger.
func (d *HeadlessDevice) SetLogger(l *slog.Logger) {
	SetLogger(l)
}
