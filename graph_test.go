package framegraph

import (
	"testing"

	"github.com/gogpu/framegraph/resource"
)

func TestGraphBuildMakesNoBackendCalls(t *testing.T) {
	table, dev := newTestFrame(t)
	g := NewGraph(table)

	p := g.AddPass("p", nil)
	h := g.CreateTransient(p, colorTarget("t"))
	q := g.AddPass("q", nil)
	g.Read(q, h)
	g.Write(q, h)
	g.SetOutput(h)

	if got := dev.Stats().Allocations; got != 0 {
		t.Errorf("backend allocations during build = %d, want 0", got)
	}
}

func TestGraphPassAccessors(t *testing.T) {
	table, _ := newTestFrame(t)
	g := NewGraph(table)

	if g.PassCount() != 0 {
		t.Errorf("PassCount() = %d, want 0", g.PassCount())
	}

	id := g.AddPass("gbuffer", nil)
	if g.PassCount() != 1 {
		t.Errorf("PassCount() = %d, want 1", g.PassCount())
	}
	if got := g.pass(id).Name(); got != "gbuffer" {
		t.Errorf("Name() = %q, want gbuffer", got)
	}
	if g.pass(id).ID() != id {
		t.Error("ID() should round-trip")
	}
}

func TestGraphInvalidPassIDPanics(t *testing.T) {
	table, _ := newTestFrame(t)
	g := NewGraph(table)

	defer func() {
		if recover() == nil {
			t.Error("declaring against a foreign PassID should panic")
		}
	}()
	g.Read(PassID(42), resource.Nil)
}

func TestGraphOutputsDeduplicated(t *testing.T) {
	table, _ := newTestFrame(t)
	g := NewGraph(table)

	p := g.AddPass("p", nil)
	h := g.CreateTransient(p, colorTarget("t"))
	g.SetOutput(h)
	g.SetOutput(h)

	if got := len(g.Outputs()); got != 1 {
		t.Errorf("Outputs() has %d entries, want 1", got)
	}
}

func TestPassHandlesDeduplicated(t *testing.T) {
	table, _ := newTestFrame(t)
	g := NewGraph(table)

	p := g.AddPass("p", nil)
	h := g.CreateTransient(p, colorTarget("t"))
	// Read and write of the same handle counts once.
	g.Read(p, h)
	g.Write(p, h)

	if got := len(g.pass(p).handles()); got != 1 {
		t.Errorf("handles() has %d entries, want 1", got)
	}
}
