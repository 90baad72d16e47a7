package curriculum

import (
	"encoding/json"
	"fmt"
	"sort"
)

const docSchemaVersion = 1

// Doc is the persisted snapshot of a graph. One jsonb column holds the whole
// curriculum for a (user, topic) session.
type Doc struct {
	SchemaVersion int     `json:"schema_version"`
	Topic         string  `json:"topic"`
	Context       string  `json:"context,omitempty"`
	RemedialSeq   int     `json:"remedial_seq,omitempty"`
	Nodes         []*Node `json:"nodes"`
	Edges         []Edge  `json:"edges"`
}

// Snapshot captures the full graph state for persistence or comparison.
func (g *Graph) Snapshot() Doc {
	g.mu.RLock()
	defer g.mu.RUnlock()
	doc := Doc{
		SchemaVersion: docSchemaVersion,
		Topic:         g.topic,
		Context:       g.context,
		RemedialSeq:   g.remedialSeq,
		Edges:         g.edgesLocked(),
	}
	for _, n := range g.nodes {
		doc.Nodes = append(doc.Nodes, n.clone())
	}
	sort.Slice(doc.Nodes, func(i, j int) bool { return doc.Nodes[i].ID < doc.Nodes[j].ID })
	return doc
}

// MarshalDoc serializes a snapshot to JSON.
func MarshalDoc(d Doc) ([]byte, error) {
	return json.Marshal(d)
}

// FromDoc rebuilds a graph from a snapshot, revalidating edges so a
// corrupted document cannot smuggle a cycle back in.
func FromDoc(d Doc) (*Graph, error) {
	g := New(d.Topic, d.Context)
	g.remedialSeq = d.RemedialSeq
	for _, n := range d.Nodes {
		if n == nil || n.ID == "" {
			return nil, fmt.Errorf("curriculum doc: node without id")
		}
		if _, ok := g.nodes[n.ID]; ok {
			return nil, fmt.Errorf("curriculum doc: %w: %s", ErrDuplicateNode, n.ID)
		}
		g.nodes[n.ID] = n.clone()
	}
	for _, e := range d.Edges {
		if _, ok := g.nodes[e.SourceID]; !ok {
			return nil, fmt.Errorf("curriculum doc: %w: %s", ErrNodeNotFound, e.SourceID)
		}
		if _, ok := g.nodes[e.TargetID]; !ok {
			return nil, fmt.Errorf("curriculum doc: %w: %s", ErrNodeNotFound, e.TargetID)
		}
		if e.SourceID == e.TargetID || g.reachableLocked(e.TargetID, e.SourceID) {
			return nil, &CycleError{SourceID: e.SourceID, TargetID: e.TargetID}
		}
		g.forward[e.SourceID] = append(g.forward[e.SourceID], e.TargetID)
		g.backward[e.TargetID] = append(g.backward[e.TargetID], e.SourceID)
	}
	g.recomputeLocked()
	return g, nil
}

// Restore replaces the graph's state with a previously captured snapshot.
// The snapshot is validated first, so a bad document leaves the graph as is.
func (g *Graph) Restore(d Doc) error {
	fresh, err := FromDoc(d)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.topic = fresh.topic
	g.context = fresh.context
	g.nodes = fresh.nodes
	g.forward = fresh.forward
	g.backward = fresh.backward
	g.remedialSeq = fresh.remedialSeq
	return nil
}

// UnmarshalDoc parses JSON produced by MarshalDoc and rebuilds the graph.
func UnmarshalDoc(raw []byte) (*Graph, error) {
	var d Doc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("curriculum doc: %w", err)
	}
	return FromDoc(d)
}
