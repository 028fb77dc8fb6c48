package backend

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func bufferDesc(label string, size uint64) Descriptor {
	return Descriptor{
		Label:       label,
		Kind:        KindBuffer,
		Size:        size,
		BufferUsage: gputypes.BufferUsageStorage,
	}
}

func textureDesc(label string, w, h uint32) Descriptor {
	return Descriptor{
		Label:        label,
		Kind:         KindTexture,
		Width:        w,
		Height:       h,
		Format:       gputypes.TextureFormatRGBA8Unorm,
		TextureUsage: gputypes.TextureUsageRenderAttachment,
	}
}

func TestHeadlessAllocateRelease(t *testing.T) {
	d := NewHeadlessDevice()
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer d.Close()

	obj, err := d.Allocate(textureDesc("color", 4, 4))
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	ho, ok := obj.(*HeadlessObject)
	if !ok {
		t.Fatalf("Allocate() returned %T, want *HeadlessObject", obj)
	}
	if len(ho.Data) != 4*4*4 {
		t.Errorf("backing store = %d bytes, want %d", len(ho.Data), 4*4*4)
	}

	d.Release(obj)

	stats := d.Stats()
	if stats.Allocations != 1 || stats.Releases != 1 || stats.Live != 0 {
		t.Errorf("stats = %+v, want 1 allocation, 1 release, 0 live", stats)
	}
}

func TestHeadlessNotInitialized(t *testing.T) {
	d := NewHeadlessDevice()
	if _, err := d.Allocate(bufferDesc("b", 16)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Allocate() error = %v, want ErrNotInitialized", err)
	}
}

func TestHeadlessBudget(t *testing.T) {
	d := NewHeadlessDevice()
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer d.Close()
	d.SetBudget(100)

	first, err := d.Allocate(bufferDesc("fits", 80))
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	if _, err := d.Allocate(bufferDesc("too-big", 80)); !errors.Is(err, ErrAllocationFailed) {
		t.Errorf("over-budget Allocate() error = %v, want ErrAllocationFailed", err)
	}

	// Releasing frees budget for the next allocation.
	d.Release(first)
	if _, err := d.Allocate(bufferDesc("fits-again", 80)); err != nil {
		t.Errorf("Allocate() after release error = %v", err)
	}
}

func TestHeadlessBarrierTracking(t *testing.T) {
	d := NewHeadlessDevice()
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer d.Close()

	obj, err := d.Allocate(textureDesc("t", 2, 2))
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	if got := d.State(obj); got != StateUndefined {
		t.Errorf("fresh object state = %v, want undefined", got)
	}

	d.InsertBarrier(obj, StateUndefined, StateRenderTarget)
	if got := d.State(obj); got != StateRenderTarget {
		t.Errorf("state after barrier = %v, want render-target", got)
	}

	d.InsertBarrier(obj, StateRenderTarget, StateShaderRead)
	if got := d.State(obj); got != StateShaderRead {
		t.Errorf("state after second barrier = %v, want shader-read", got)
	}

	if got := d.Stats().Barriers; got != 2 {
		t.Errorf("barrier count = %d, want 2", got)
	}
}

func TestHeadlessRecycle(t *testing.T) {
	d := NewHeadlessDevice()
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer d.Close()

	obj, err := d.Allocate(textureDesc("t", 2, 2))
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	ho := obj.(*HeadlessObject)
	ho.Data[0] = 0xff
	d.InsertBarrier(obj, StateUndefined, StateCopyDst)

	d.Recycle(obj)

	if ho.Data[0] != 0 {
		t.Error("Recycle() should zero the backing store")
	}
	if got := d.State(obj); got != StateUndefined {
		t.Errorf("state after Recycle() = %v, want undefined", got)
	}
}

func TestHeadlessReadback(t *testing.T) {
	d := NewHeadlessDevice()
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer d.Close()

	obj, err := d.Allocate(textureDesc("t", 1, 1))
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	obj.(*HeadlessObject).Data[0] = 42

	data, err := d.Readback(obj)
	if err != nil {
		t.Fatalf("Readback() error = %v", err)
	}
	if data[0] != 42 {
		t.Errorf("Readback()[0] = %d, want 42", data[0])
	}

	// Readback copies; mutating the copy must not touch the resource.
	data[0] = 7
	if obj.(*HeadlessObject).Data[0] != 42 {
		t.Error("Readback() should return a copy")
	}
}

func TestHeadlessSubmit(t *testing.T) {
	d := NewHeadlessDevice()
	if err := d.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer d.Close()

	ran := false
	if err := d.Submit(func() error { ran = true; return nil }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !ran {
		t.Error("Submit() should run the work")
	}
	if got := d.Stats().Submissions; got != 1 {
		t.Errorf("submission count = %d, want 1", got)
	}
}
