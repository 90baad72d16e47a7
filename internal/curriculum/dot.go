package curriculum

import (
	"fmt"
	"sort"
	"strings"
)

var dotColors = map[Status]string{
	StatusLocked:     "lightgray",
	StatusAvailable:  "lightblue",
	StatusInProgress: "gold",
	StatusCompleted:  "lightgreen",
	StatusRemedial:   "lightsalmon",
}

// DOT renders the graph in Graphviz dot format, colored by status.
func (g *Graph) DOT() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var b strings.Builder
	b.WriteString("digraph curriculum {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=\"rounded,filled\"];\n")

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		n := g.nodes[id]
		color := dotColors[n.Status]
		if color == "" {
			color = "white"
		}
		fmt.Fprintf(&b, "  %q [label=%q, fillcolor=%q];\n", n.ID, n.Label, color)
	}
	for _, e := range g.edgesLocked() {
		fmt.Fprintf(&b, "  %q -> %q;\n", e.SourceID, e.TargetID)
	}
	b.WriteString("}\n")
	return b.String()
}
