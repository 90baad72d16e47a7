package curriculum

import (
	"errors"
	"reflect"
	"testing"
)

func buildChain(t *testing.T, ids ...string) *Graph {
	t.Helper()
	g := New("Calculus", "")
	for _, id := range ids {
		if err := g.AddNode(id, id); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for i := 0; i+1 < len(ids); i++ {
		if err := g.AddEdge(ids[i], ids[i+1]); err != nil {
			t.Fatalf("AddEdge(%s, %s): %v", ids[i], ids[i+1], err)
		}
	}
	return g
}

func TestAddNodeDuplicate(t *testing.T) {
	g := New("Calculus", "")
	if err := g.AddNode("limits", "Limits"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddNode("limits", "Limits again"); !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got %v", err)
	}
}

func TestAddEdgeRejectsCycle(t *testing.T) {
	g := buildChain(t, "a", "b", "c")
	before := g.Snapshot()

	err := g.AddEdge("c", "a")
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if ce.SourceID != "c" || ce.TargetID != "a" {
		t.Fatalf("unexpected cycle endpoints: %+v", ce)
	}
	if !reflect.DeepEqual(before, g.Snapshot()) {
		t.Fatalf("graph changed after rejected edge")
	}
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	g := buildChain(t, "a")
	var ce *CycleError
	if err := g.AddEdge("a", "a"); !errors.As(err, &ce) {
		t.Fatalf("expected CycleError, got %v", err)
	}
}

func TestAddEdgeUnknownNode(t *testing.T) {
	g := buildChain(t, "a")
	if err := g.AddEdge("a", "missing"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestAvailableNodesFollowCompletion(t *testing.T) {
	g := buildChain(t, "limits", "derivatives", "integrals")

	avail := g.AvailableNodes()
	if len(avail) != 1 || avail[0].ID != "limits" {
		t.Fatalf("expected only limits available, got %v", nodeIDs(avail))
	}

	if err := g.MarkCompleted("limits"); err != nil {
		t.Fatalf("MarkCompleted(limits): %v", err)
	}
	avail = g.AvailableNodes()
	if len(avail) != 1 || avail[0].ID != "derivatives" {
		t.Fatalf("expected only derivatives available, got %v", nodeIDs(avail))
	}
}

func TestMarkCompletedUnmetPrereq(t *testing.T) {
	g := buildChain(t, "limits", "derivatives")
	before := g.Snapshot()

	err := g.MarkCompleted("derivatives")
	var pe *PrerequisiteUnmetError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PrerequisiteUnmetError, got %v", err)
	}
	if pe.NodeID != "derivatives" || len(pe.Missing) != 1 || pe.Missing[0] != "limits" {
		t.Fatalf("unexpected error detail: %+v", pe)
	}
	if !reflect.DeepEqual(before, g.Snapshot()) {
		t.Fatalf("graph changed after rejected completion")
	}
}

func TestMarkCompletedIdempotent(t *testing.T) {
	g := buildChain(t, "limits")
	if err := g.MarkCompleted("limits"); err != nil {
		t.Fatalf("first MarkCompleted: %v", err)
	}
	if err := g.MarkCompleted("limits"); err != nil {
		t.Fatalf("second MarkCompleted: %v", err)
	}
}

func TestRelabelIdempotent(t *testing.T) {
	g := buildChain(t, "limits")
	if err := g.Relabel("limits", "Limits and Continuity"); err != nil {
		t.Fatalf("Relabel: %v", err)
	}
	before := g.Snapshot()
	if err := g.Relabel("limits", "Limits and Continuity"); err != nil {
		t.Fatalf("repeat Relabel: %v", err)
	}
	if !reflect.DeepEqual(before, g.Snapshot()) {
		t.Fatalf("repeat relabel changed the graph")
	}
	if err := g.Relabel("missing", "x"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestSpawnRemedialLifecycle(t *testing.T) {
	g := buildChain(t, "derivatives")
	if err := g.MarkInProgress("derivatives"); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}

	child, err := g.SpawnRemedial("derivatives", "Review: Chain Rule")
	if err != nil {
		t.Fatalf("SpawnRemedial: %v", err)
	}
	if child.Status != StatusRemedial || child.RemedialFor != "derivatives" {
		t.Fatalf("unexpected remedial node: %+v", child)
	}

	parent, err := g.Node("derivatives")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if parent.ActiveRemedialID != child.ID {
		t.Fatalf("parent missing active remedial link: %+v", parent)
	}
	if parent.Status != StatusAvailable {
		t.Fatalf("failed parent should drop back to available, got %s", parent.Status)
	}

	// Second spawn while the first is still open must fail.
	if _, err := g.SpawnRemedial("derivatives", "again"); !errors.Is(err, ErrActiveRemedial) {
		t.Fatalf("expected ErrActiveRemedial, got %v", err)
	}

	// Remedial node has no prerequisites, so it is immediately startable.
	found := false
	for _, n := range g.AvailableNodes() {
		if n.ID == child.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("remedial child not listed as available")
	}

	if err := g.MarkCompleted(child.ID); err != nil {
		t.Fatalf("MarkCompleted(remedial): %v", err)
	}
	parent, _ = g.Node("derivatives")
	if parent.ActiveRemedialID != "" {
		t.Fatalf("completing remedial should free the slot, got %q", parent.ActiveRemedialID)
	}
	if _, err := g.SpawnRemedial("derivatives", "second round"); err != nil {
		t.Fatalf("spawn after completion: %v", err)
	}
}

func TestSpawnRemedialUnknownParent(t *testing.T) {
	g := New("Calculus", "")
	if _, err := g.SpawnRemedial("missing", "x"); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestCommitCycleRoundTrip(t *testing.T) {
	g := buildChain(t, "derivatives")
	content := CycleContent{
		Content: "The derivative measures instantaneous change.",
		Quiz: []QuizItem{{
			Question:           "d/dx x^2 = ?",
			Options:            []string{"2x", "x", "x^2", "2"},
			CorrectOptionIndex: 0,
		}},
		Equation:       &Equation{Markup: "f'(x) = lim_{h->0} (f(x+h)-f(x))/h"},
		RiskScore:      0.2,
		NeedsQuizRegen: false,
	}
	if err := g.CommitCycle("derivatives", content); err != nil {
		t.Fatalf("CommitCycle: %v", err)
	}
	n, err := g.Node("derivatives")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if n.Content != content.Content || len(n.Quiz) != 1 || n.Equation == nil {
		t.Fatalf("committed content not visible: %+v", n)
	}
	if err := g.CommitCycle("missing", content); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := buildChain(t, "limits", "derivatives", "integrals")
	if err := g.MarkCompleted("limits"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if _, err := g.SpawnRemedial("derivatives", "Review"); err != nil {
		t.Fatalf("SpawnRemedial: %v", err)
	}

	raw, err := MarshalDoc(g.Snapshot())
	if err != nil {
		t.Fatalf("MarshalDoc: %v", err)
	}
	restored, err := UnmarshalDoc(raw)
	if err != nil {
		t.Fatalf("UnmarshalDoc: %v", err)
	}
	if !reflect.DeepEqual(g.Snapshot(), restored.Snapshot()) {
		t.Fatalf("snapshot changed across round trip")
	}
}

func TestFromDocRejectsCycle(t *testing.T) {
	doc := Doc{
		SchemaVersion: 1,
		Topic:         "Calculus",
		Nodes: []*Node{
			{ID: "a", Label: "a", Status: StatusAvailable},
			{ID: "b", Label: "b", Status: StatusLocked},
		},
		Edges: []Edge{{SourceID: "a", TargetID: "b"}, {SourceID: "b", TargetID: "a"}},
	}
	var ce *CycleError
	if _, err := FromDoc(doc); !errors.As(err, &ce) {
		t.Fatalf("expected CycleError, got %v", err)
	}
}

func nodeIDs(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}
