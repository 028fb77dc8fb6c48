package resource

import (
	"fmt"

	"github.com/gogpu/framegraph/backend"
)

// Lifecycle is the allocation state of a table slot.
type Lifecycle uint8

const (
	// LifeUnallocated means the slot is declared but has no backend object.
	LifeUnallocated Lifecycle = iota

	// LifeAllocated means the backend object exists.
	LifeAllocated

	// LifeBound means the resource is in active use by the currently
	// executing pass. A Bound resource cannot be freed.
	LifeBound

	// LifeFreed means the slot is reusable. Reached only transiently
	// inside free paths; a live handle never observes it because the
	// generation is bumped in the same step.
	LifeFreed
)

// String returns a human-readable name for the lifecycle state.
func (l Lifecycle) String() string {
	switch l {
	case LifeUnallocated:
		return "unallocated"
	case LifeAllocated:
		return "allocated"
	case LifeBound:
		return "bound"
	case LifeFreed:
		return "freed"
	default:
		return fmt.Sprintf("Unknown(%d)", l)
	}
}

// Resource is the resolved view of a table entry handed to pass work.
type Resource struct {
	// Desc is the descriptor the resource was created from.
	Desc backend.Descriptor

	// Obj is the backend object. Opaque to the graph; pass work
	// type-asserts it to whatever the active backend allocates.
	Obj backend.Object
}

// Stats counts table activity. Allocation counts are the observable
// surface of the alias pool: a pool hit satisfies an Allocate call
// without a backend allocation.
type Stats struct {
	// Allocations is the number of backend Allocate calls made.
	Allocations int

	// PoolHits is the number of Allocate calls satisfied from the alias pool.
	PoolHits int

	// Frees is the number of freed transient resources.
	Frees int

	// LiveTransient is the number of occupied transient slots.
	LiveTransient int

	// LivePersistent is the number of occupied persistent slots.
	LivePersistent int
}

type slot struct {
	desc backend.Descriptor
	obj  backend.Object
	gen  uint32
	life Lifecycle
}

// arena is one of the table's two slot namespaces.
type arena struct {
	slots []slot
	free  []uint32
}

// take returns the index of a fresh or recycled slot with its generation
// advanced past any previously issued handle.
func (a *arena) take(desc backend.Descriptor) uint32 {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.desc = desc
		s.obj = nil
		s.life = LifeUnallocated
		s.gen++
		return idx
	}
	a.slots = append(a.slots, slot{desc: desc, gen: 1})
	return uint32(len(a.slots) - 1)
}

// Table owns all GPU-resource storage and maps handles to backend objects.
//
// A Table is exclusively owned by one frame's graph-execution context at a
// time; it is not safe for concurrent mutation. Persistent entries are
// managed by CreatePersistent/DestroyPersistent outside the per-frame
// cycle; transient entries are declared during graph building, allocated
// and freed during execution, and swept by EndFrame.
type Table struct {
	device     backend.Device
	transient  arena
	persistent arena
	pool       *aliasPool
	stats      Stats
}

// NewTable creates a resource table allocating through device.
func NewTable(device backend.Device) *Table {
	return &Table{
		device: device,
		pool:   newAliasPool(),
	}
}

// Device returns the backend device the table allocates through.
func (t *Table) Device() backend.Device {
	return t.device
}

// lookup resolves a handle to its slot, enforcing generation checks.
func (t *Table) lookup(h Handle) (*slot, error) {
	if !h.IsValid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	a := &t.transient
	if h.IsPersistent() {
		a = &t.persistent
	}
	idx := h.slotIndex()
	if int(idx) >= len(a.slots) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownHandle, h)
	}
	s := &a.slots[idx]
	if s.gen != h.gen {
		return nil, fmt.Errorf("%w: %v (slot generation %d)", ErrStaleHandle, h, s.gen)
	}
	return s, nil
}

// Contains reports whether h currently resolves in the table.
func (t *Table) Contains(h Handle) bool {
	_, err := t.lookup(h)
	return err == nil
}

// Describe returns the descriptor for h. Works for declared-but-
// unallocated transients, which is what the graph compiler needs when
// computing barrier states.
func (t *Table) Describe(h Handle) (backend.Descriptor, error) {
	s, err := t.lookup(h)
	if err != nil {
		return backend.Descriptor{}, err
	}
	return s.desc, nil
}

// Lifecycle returns the allocation state of h.
func (t *Table) Lifecycle(h Handle) (Lifecycle, error) {
	s, err := t.lookup(h)
	if err != nil {
		return LifeUnallocated, err
	}
	return s.life, nil
}

// CreatePersistent allocates a resource that lives across frames and
// returns its stable handle. The backend object is created immediately.
func (t *Table) CreatePersistent(desc backend.Descriptor) (Handle, error) {
	obj, err := t.device.Allocate(desc)
	if err != nil {
		return Nil, fmt.Errorf("resource: persistent %q: %w", desc.Label, err)
	}
	t.stats.Allocations++
	t.stats.LivePersistent++

	idx := t.persistent.take(desc)
	s := &t.persistent.slots[idx]
	s.obj = obj
	s.life = LifeAllocated

	h := Handle{index: idx | persistentBit, gen: s.gen}
	logger().Debug("resource: create persistent", "handle", h, "label", desc.Label)
	return h, nil
}

// DestroyPersistent releases a persistent resource. The handle and all
// copies of it become stale.
func (t *Table) DestroyPersistent(h Handle) error {
	if !h.IsPersistent() {
		return fmt.Errorf("%w: %v is not persistent", ErrUnknownHandle, h)
	}
	s, err := t.lookup(h)
	if err != nil {
		return err
	}
	if s.life == LifeBound {
		panic(fmt.Sprintf("resource: destroy of bound resource %v (%q)", h, s.desc.Label))
	}
	if s.obj != nil {
		t.device.Release(s.obj)
		s.obj = nil
	}
	s.life = LifeFreed
	s.gen++
	t.persistent.free = append(t.persistent.free, h.slotIndex())
	t.stats.LivePersistent--
	logger().Debug("resource: destroy persistent", "handle", h)
	return nil
}

// Declare registers a transient descriptor and returns its frame-scoped
// handle. No backend call is made; allocation is deferred to Allocate so
// that resources belonging to culled passes are never materialized.
func (t *Table) Declare(desc backend.Descriptor) Handle {
	idx := t.transient.take(desc)
	t.stats.LiveTransient++
	h := Handle{index: idx, gen: t.transient.slots[idx].gen}
	logger().Debug("resource: declare transient", "handle", h, "label", desc.Label)
	return h
}

// Allocate materializes the backend object for a declared transient
// resource, reusing a compatible pooled object when one is available.
func (t *Table) Allocate(h Handle) error {
	if h.IsPersistent() {
		return fmt.Errorf("resource: allocate of persistent %v", h)
	}
	s, err := t.lookup(h)
	if err != nil {
		return err
	}
	if s.life != LifeUnallocated {
		return fmt.Errorf("resource: allocate of %v in state %v", h, s.life)
	}

	if obj, ok := t.pool.Get(s.desc); ok {
		if r, isRecycler := t.device.(backend.Recycler); isRecycler {
			r.Recycle(obj)
		}
		s.obj = obj
		s.life = LifeAllocated
		t.stats.PoolHits++
		logger().Debug("resource: alias", "handle", h, "label", s.desc.Label)
		return nil
	}

	obj, err := t.device.Allocate(s.desc)
	if err != nil {
		return fmt.Errorf("resource: transient %q: %w", s.desc.Label, err)
	}
	s.obj = obj
	s.life = LifeAllocated
	t.stats.Allocations++
	return nil
}

// Get resolves a handle to its live resource.
func (t *Table) Get(h Handle) (Resource, error) {
	s, err := t.lookup(h)
	if err != nil {
		return Resource{}, err
	}
	if s.life != LifeAllocated && s.life != LifeBound {
		return Resource{}, fmt.Errorf("%w: %v (%q)", ErrNotAllocated, h, s.desc.Label)
	}
	return Resource{Desc: s.desc, Obj: s.obj}, nil
}

// Bind marks a resource as in active use by the currently executing pass.
func (t *Table) Bind(h Handle) error {
	s, err := t.lookup(h)
	if err != nil {
		return err
	}
	if s.life != LifeAllocated {
		return fmt.Errorf("resource: bind of %v in state %v", h, s.life)
	}
	s.life = LifeBound
	return nil
}

// Unbind returns a bound resource to the allocated state.
func (t *Table) Unbind(h Handle) error {
	s, err := t.lookup(h)
	if err != nil {
		return err
	}
	if s.life != LifeBound {
		return fmt.Errorf("resource: unbind of %v in state %v", h, s.life)
	}
	s.life = LifeAllocated
	return nil
}

// Free releases a transient resource at the end of its lifetime window.
// The backend object is parked in the alias pool; the slot is recycled and
// every outstanding copy of the handle becomes stale.
//
// Freeing a Bound resource is a programmer error and panics.
func (t *Table) Free(h Handle) error {
	if h.IsPersistent() {
		return fmt.Errorf("resource: free of persistent %v (use DestroyPersistent)", h)
	}
	s, err := t.lookup(h)
	if err != nil {
		return err
	}
	if s.life == LifeBound {
		panic(fmt.Sprintf("resource: free of bound resource %v (%q)", h, s.desc.Label))
	}
	if s.obj != nil {
		t.pool.Put(s.desc, s.obj)
		s.obj = nil
	}
	s.life = LifeFreed
	s.gen++
	t.transient.free = append(t.transient.free, h.slotIndex())
	t.stats.Frees++
	t.stats.LiveTransient--
	logger().Debug("resource: free transient", "handle", h)
	return nil
}

// EndFrame sweeps every remaining transient slot: declared-but-culled
// entries are reclaimed without ever having been allocated, and still-live
// objects (frame outputs among them) are parked in the alias pool. All
// outstanding transient handles become stale. Persistent entries and the
// alias pool survive into the next frame.
func (t *Table) EndFrame() {
	for idx := range t.transient.slots {
		s := &t.transient.slots[idx]
		if s.life == LifeFreed {
			continue
		}
		if s.life == LifeBound {
			panic(fmt.Sprintf("resource: frame ended with bound resource %q", s.desc.Label))
		}
		if s.obj != nil {
			t.pool.Put(s.desc, s.obj)
			s.obj = nil
		}
		s.life = LifeFreed
		s.gen++
		t.transient.free = append(t.transient.free, uint32(idx))
		t.stats.LiveTransient--
	}
}

// FlushPool releases every pooled backend object. Call when descriptor
// mixes change between scenes and pooled objects will not be reused.
func (t *Table) FlushPool() {
	t.pool.Flush(t.device.Release)
}

// PooledObjects returns the number of objects parked in the alias pool.
func (t *Table) PooledObjects() int {
	return t.pool.Len()
}

// Close releases all persistent resources and the alias pool. The table
// must not be used afterwards.
func (t *Table) Close() {
	for idx := range t.persistent.slots {
		s := &t.persistent.slots[idx]
		if s.obj != nil {
			t.device.Release(s.obj)
			s.obj = nil
			s.gen++
			s.life = LifeFreed
			t.stats.LivePersistent--
		}
	}
	t.pool.Flush(t.device.Release)
}

// Stats returns a snapshot of the table's counters.
func (t *Table) Stats() Stats {
	return t.stats
}
