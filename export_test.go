package framegraph

import (
	"strings"
	"testing"
)

func buildExportGraph(t *testing.T) *Graph {
	t.Helper()
	table, _ := newTestFrame(t)
	g := NewGraph(table)

	shadow := g.AddPass("shadow", nil)
	hs := g.CreateTransient(shadow, colorTarget("shadow_map"))

	lighting := g.AddPass("lighting", nil)
	g.Read(lighting, hs)
	lit := g.CreateTransient(lighting, colorTarget("lit"))
	g.SetOutput(lit)
	return g
}

func TestGraphDOT(t *testing.T) {
	g := buildExportGraph(t)
	dot := g.DOT()

	for _, want := range []string{
		"digraph framegraph {",
		"rankdir=LR;",
		`n0 [label="shadow"];`,
		`n1 [label="lighting"];`,
		`n0 -> n1 [label="shadow_map"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
}

func TestGraphMermaid(t *testing.T) {
	g := buildExportGraph(t)
	mermaid := g.Mermaid()

	for _, want := range []string{
		"graph LR",
		`n0["shadow"]`,
		`n1["lighting"]`,
		"n0 -->|shadow_map| n1",
	} {
		if !strings.Contains(mermaid, want) {
			t.Errorf("Mermaid output missing %q:\n%s", want, mermaid)
		}
	}
}

func TestExportDeterministic(t *testing.T) {
	g := buildExportGraph(t)
	if g.DOT() != g.DOT() {
		t.Error("DOT() should be deterministic")
	}
	if g.Mermaid() != g.Mermaid() {
		t.Error("Mermaid() should be deterministic")
	}
}

func TestExportEscapesLabels(t *testing.T) {
	table, _ := newTestFrame(t)
	g := NewGraph(table)
	p := g.AddPass(`pass "quoted"`, nil)
	h := g.CreateTransient(p, colorTarget("t"))
	g.SetOutput(h)

	if !strings.Contains(g.DOT(), `pass \"quoted\"`) {
		t.Errorf("DOT should escape quotes:\n%s", g.DOT())
	}
}
