package resource

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framegraph/backend"
)

func newTestTable(t *testing.T) (*Table, *backend.HeadlessDevice) {
	t.Helper()
	d := backend.NewHeadlessDevice()
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(d.Close)
	return NewTable(d), d
}

func testDesc(label string) backend.Descriptor {
	return backend.Descriptor{
		Label:        label,
		Kind:         backend.KindTexture,
		Width:        8,
		Height:       8,
		Format:       gputypes.TextureFormatRGBA8Unorm,
		TextureUsage: gputypes.TextureUsageRenderAttachment,
	}
}

func TestHandleZeroValue(t *testing.T) {
	var h Handle
	if h != Nil {
		t.Error("zero Handle should equal Nil")
	}
	if h.IsValid() {
		t.Error("zero Handle should be invalid")
	}
}

func TestPersistentLifecycle(t *testing.T) {
	table, dev := newTestTable(t)

	h, err := table.CreatePersistent(testDesc("atlas"))
	if err != nil {
		t.Fatalf("CreatePersistent() error = %v", err)
	}
	if !h.IsPersistent() {
		t.Error("persistent handle should report IsPersistent")
	}

	res, err := table.Get(h)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if res.Desc.Label != "atlas" {
		t.Errorf("Get().Desc.Label = %q, want %q", res.Desc.Label, "atlas")
	}

	if err := table.DestroyPersistent(h); err != nil {
		t.Fatalf("DestroyPersistent() error = %v", err)
	}
	if _, err := table.Get(h); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Get() after destroy error = %v, want ErrStaleHandle", err)
	}
	if dev.Stats().Live != 0 {
		t.Errorf("device live objects = %d, want 0", dev.Stats().Live)
	}
}

func TestTransientTwoPhase(t *testing.T) {
	table, dev := newTestTable(t)

	h := table.Declare(testDesc("scratch"))
	if h.IsPersistent() {
		t.Error("transient handle should not report IsPersistent")
	}

	// Declare makes no backend call.
	if got := dev.Stats().Allocations; got != 0 {
		t.Fatalf("allocations after Declare() = %d, want 0", got)
	}
	if _, err := table.Get(h); !errors.Is(err, ErrNotAllocated) {
		t.Errorf("Get() before Allocate() error = %v, want ErrNotAllocated", err)
	}

	// Describe works on unallocated entries.
	desc, err := table.Describe(h)
	if err != nil || desc.Label != "scratch" {
		t.Errorf("Describe() = %q, %v, want scratch, nil", desc.Label, err)
	}

	if err := table.Allocate(h); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if got := dev.Stats().Allocations; got != 1 {
		t.Errorf("allocations after Allocate() = %d, want 1", got)
	}
	if _, err := table.Get(h); err != nil {
		t.Errorf("Get() error = %v", err)
	}
}

func TestFreeStalesHandle(t *testing.T) {
	table, _ := newTestTable(t)

	h := table.Declare(testDesc("a"))
	if err := table.Allocate(h); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	copied := h

	if err := table.Free(h); err != nil {
		t.Fatalf("Free() error = %v", err)
	}

	// Both the original and every copy are stale now.
	for _, hh := range []Handle{h, copied} {
		if _, err := table.Get(hh); !errors.Is(err, ErrStaleHandle) {
			t.Errorf("Get(%v) after free error = %v, want ErrStaleHandle", hh, err)
		}
	}
}

func TestSlotReuseBumpsGeneration(t *testing.T) {
	table, _ := newTestTable(t)

	first := table.Declare(testDesc("a"))
	if err := table.Allocate(first); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := table.Free(first); err != nil {
		t.Fatalf("Free() error = %v", err)
	}

	// The freed slot is reused; the old handle must not resolve to the
	// new resource.
	second := table.Declare(testDesc("b"))
	if first == second {
		t.Fatal("recycled slot issued an identical handle")
	}
	if _, err := table.Get(first); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("old handle error = %v, want ErrStaleHandle", err)
	}
	desc, err := table.Describe(second)
	if err != nil || desc.Label != "b" {
		t.Errorf("Describe(second) = %q, %v, want b, nil", desc.Label, err)
	}
}

func TestUnknownHandle(t *testing.T) {
	table, _ := newTestTable(t)

	if _, err := table.Get(Nil); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Get(Nil) error = %v, want ErrUnknownHandle", err)
	}
	bogus := Handle{index: 999, gen: 1}
	if _, err := table.Get(bogus); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("Get(out-of-range) error = %v, want ErrUnknownHandle", err)
	}
}

func TestFreeBoundPanics(t *testing.T) {
	table, _ := newTestTable(t)

	h := table.Declare(testDesc("a"))
	if err := table.Allocate(h); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := table.Bind(h); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Free() of a bound resource should panic")
		}
	}()
	_ = table.Free(h)
}

func TestAliasReuse(t *testing.T) {
	table, dev := newTestTable(t)

	a := table.Declare(testDesc("a"))
	if err := table.Allocate(a); err != nil {
		t.Fatalf("Allocate(a) error = %v", err)
	}
	if err := table.Free(a); err != nil {
		t.Fatalf("Free(a) error = %v", err)
	}

	// Compatible descriptor: served from the pool, no backend call.
	b := table.Declare(testDesc("b"))
	if err := table.Allocate(b); err != nil {
		t.Fatalf("Allocate(b) error = %v", err)
	}
	if got := dev.Stats().Allocations; got != 1 {
		t.Errorf("backend allocations = %d, want 1 (aliased)", got)
	}
	if got := table.Stats().PoolHits; got != 1 {
		t.Errorf("pool hits = %d, want 1", got)
	}

	// Incompatible descriptor: fresh allocation.
	big := testDesc("big")
	big.Width = 64
	c := table.Declare(big)
	if err := table.Allocate(c); err != nil {
		t.Fatalf("Allocate(c) error = %v", err)
	}
	if got := dev.Stats().Allocations; got != 2 {
		t.Errorf("backend allocations = %d, want 2", got)
	}
}

func TestEndFrameSweepsTransients(t *testing.T) {
	table, dev := newTestTable(t)

	allocated := table.Declare(testDesc("allocated"))
	if err := table.Allocate(allocated); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	declaredOnly := table.Declare(testDesc("declared-only"))

	persistent, err := table.CreatePersistent(testDesc("persistent"))
	if err != nil {
		t.Fatalf("CreatePersistent() error = %v", err)
	}

	table.EndFrame()

	for _, h := range []Handle{allocated, declaredOnly} {
		if table.Contains(h) {
			t.Errorf("transient %v should be stale after EndFrame()", h)
		}
	}
	if !table.Contains(persistent) {
		t.Error("persistent handle should survive EndFrame()")
	}

	// The allocated object went to the pool, not back to the device.
	if got := table.PooledObjects(); got != 1 {
		t.Errorf("pooled objects = %d, want 1", got)
	}
	if got := dev.Stats().Releases; got != 0 {
		t.Errorf("device releases = %d, want 0", got)
	}

	table.FlushPool()
	if got := dev.Stats().Releases; got != 1 {
		t.Errorf("device releases after FlushPool() = %d, want 1", got)
	}
}

func TestEndFrameBoundPanics(t *testing.T) {
	table, _ := newTestTable(t)

	h := table.Declare(testDesc("a"))
	if err := table.Allocate(h); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if err := table.Bind(h); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("EndFrame() with a bound resource should panic")
		}
	}()
	table.EndFrame()
}

func TestCloseReleasesPersistent(t *testing.T) {
	table, dev := newTestTable(t)

	if _, err := table.CreatePersistent(testDesc("a")); err != nil {
		t.Fatalf("CreatePersistent() error = %v", err)
	}
	if _, err := table.CreatePersistent(testDesc("b")); err != nil {
		t.Fatalf("CreatePersistent() error = %v", err)
	}

	table.Close()

	if got := dev.Stats().Live; got != 0 {
		t.Errorf("device live objects after Close() = %d, want 0", got)
	}
}
