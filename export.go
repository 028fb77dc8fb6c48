package framegraph

import (
	"fmt"
	"sort"
	"strings"
)

// DOT exports the graph's dependency edges as Graphviz DOT text. Each
// edge is labeled with the resources inducing it. The export reflects
// the declared graph before culling; call it on the same Graph that was
// (or will be) compiled.
func (g *Graph) DOT() string {
	edges := g.buildEdges()

	var b strings.Builder
	b.WriteString("digraph framegraph {\n")
	b.WriteString("  rankdir=LR;\n")

	for i, p := range g.passes {
		b.WriteString(fmt.Sprintf("  n%d [label=\"%s\"];\n", i, escapeDOT(p.name)))
	}
	for _, key := range sortedEdgeKeys(edges) {
		label := escapeDOT(g.edgeLabel(edges, key))
		b.WriteString(fmt.Sprintf("  n%d -> n%d [label=\"%s\"];\n",
			int(key[0]), int(key[1]), label))
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid exports the graph's dependency edges as Mermaid graph text.
func (g *Graph) Mermaid() string {
	edges := g.buildEdges()

	var b strings.Builder
	b.WriteString("graph LR\n")

	for i, p := range g.passes {
		b.WriteString(fmt.Sprintf("    n%d[\"%s\"]\n", i, escapeMermaid(p.name)))
	}
	for _, key := range sortedEdgeKeys(edges) {
		label := escapeMermaid(g.edgeLabel(edges, key))
		b.WriteString(fmt.Sprintf("    n%d -->|%s| n%d\n",
			int(key[0]), label, int(key[1])))
	}
	return b.String()
}

// edgeLabel names the resources inducing an edge, deduplicated, using
// descriptor labels where set.
func (g *Graph) edgeLabel(e *depEdges, key [2]PassID) string {
	var names []string
	seen := make(map[string]struct{})
	for _, h := range e.edgeHandles[key] {
		name := h.String()
		if desc, err := g.table.Describe(h); err == nil && desc.Label != "" {
			name = desc.Label
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

// sortedEdgeKeys returns the edge keys in (from, to) order so exports
// are deterministic.
func sortedEdgeKeys(e *depEdges) [][2]PassID {
	keys := make([][2]PassID, 0, len(e.edgeHandles))
	for key := range e.edgeHandles {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return keys
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}

func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
