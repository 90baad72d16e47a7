package curriculum

import (
	"strings"
	"testing"
)

func TestDOTExport(t *testing.T) {
	g := buildChain(t, "limits", "derivatives")
	if err := g.MarkCompleted("limits"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	out := g.DOT()
	for _, want := range []string{
		"digraph curriculum {",
		`"limits" [label="limits", fillcolor="lightgreen"];`,
		`"derivatives" [label="derivatives", fillcolor="lightblue"];`,
		`"limits" -> "derivatives";`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("DOT output missing %q:\n%s", want, out)
		}
	}
}
