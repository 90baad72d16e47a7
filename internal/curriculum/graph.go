package curriculum

import (
	"fmt"
	"sort"
	"sync"
)

// Status is the completion state of a curriculum node.
type Status string

const (
	StatusLocked     Status = "locked"
	StatusAvailable  Status = "available"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRemedial   Status = "remedial"
)

// QuizItem is one multiple-choice question attached to a node.
type QuizItem struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
	Explanation        string   `json:"explanation,omitempty"`
}

// Equation is a rendered formula attached to a node. PNG may be empty when
// the module had no formula to render.
type Equation struct {
	Markup   string `json:"markup"`
	PNG      []byte `json:"png,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Node is a single curriculum module. Content, Quiz and Equation stay empty
// until a generation cycle commits them.
type Node struct {
	ID      string     `json:"id"`
	Label   string     `json:"label"`
	Status  Status     `json:"status"`
	Content string     `json:"content,omitempty"`
	Quiz    []QuizItem `json:"quiz,omitempty"`
	Equation *Equation `json:"equation,omitempty"`

	// RiskScore is the last audit score committed with the node's content.
	RiskScore float64 `json:"risk_score,omitempty"`

	// NeedsQuizRegen and NeedsEquationRegen mark content committed in
	// degraded mode so a later cycle can fill the gap.
	NeedsQuizRegen     bool `json:"needs_quiz_regen,omitempty"`
	NeedsEquationRegen bool `json:"needs_equation_regen,omitempty"`

	// RemedialFor links a remedial node back to the module whose quiz was
	// failed. Informational only, it does not gate availability.
	RemedialFor string `json:"remedial_for,omitempty"`

	// ActiveRemedialID is set on the parent while it has an uncompleted
	// remedial child. At most one at a time.
	ActiveRemedialID string `json:"active_remedial_id,omitempty"`
}

func (n *Node) clone() *Node {
	c := *n
	if n.Quiz != nil {
		c.Quiz = make([]QuizItem, len(n.Quiz))
		copy(c.Quiz, n.Quiz)
		for i := range c.Quiz {
			opts := make([]string, len(n.Quiz[i].Options))
			copy(opts, n.Quiz[i].Options)
			c.Quiz[i].Options = opts
		}
	}
	if n.Equation != nil {
		eq := *n.Equation
		eq.PNG = append([]byte(nil), n.Equation.PNG...)
		c.Equation = &eq
	}
	return &c
}

// Edge records that Source must be completed before Target unlocks.
type Edge struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// CycleContent is the bundle a generation cycle commits onto a node in a
// single atomic step. Label is optional; empty keeps the current label.
type CycleContent struct {
	Label              string
	Content            string
	Quiz               []QuizItem
	Equation           *Equation
	RiskScore          float64
	NeedsQuizRegen     bool
	NeedsEquationRegen bool
}

// Graph is a personalized curriculum DAG. Mutations are serialized under a
// single lock and validate before they touch state, so readers only ever see
// a fully applied graph.
type Graph struct {
	mu sync.RWMutex

	topic       string
	context     string
	nodes       map[string]*Node
	forward     map[string][]string // prereq -> dependents
	backward    map[string][]string // node -> prereqs
	remedialSeq int
}

func New(topic, context string) *Graph {
	return &Graph{
		topic:    topic,
		context:  context,
		nodes:    map[string]*Node{},
		forward:  map[string][]string{},
		backward: map[string][]string{},
	}
}

func (g *Graph) Topic() string   { return g.topic }
func (g *Graph) Context() string { return g.context }

// AddNode inserts a new node. Status is derived immediately: no prereqs means
// available, otherwise locked.
func (g *Graph) AddNode(id, label string) error {
	if id == "" {
		return fmt.Errorf("node id required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	g.nodes[id] = &Node{ID: id, Label: label, Status: StatusLocked}
	g.recomputeLocked()
	return nil
}

// AddEdge records source as a prerequisite of target. Rejects edges that
// would close a cycle, leaving the graph untouched.
func (g *Graph) AddEdge(sourceID, targetID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[sourceID]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, sourceID)
	}
	if _, ok := g.nodes[targetID]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, targetID)
	}
	if sourceID == targetID {
		return &CycleError{SourceID: sourceID, TargetID: targetID}
	}
	// Already present, nothing to do.
	for _, dep := range g.forward[sourceID] {
		if dep == targetID {
			return nil
		}
	}
	// A path target -> ... -> source means the new edge closes a loop.
	if g.reachableLocked(targetID, sourceID) {
		return &CycleError{SourceID: sourceID, TargetID: targetID}
	}
	g.forward[sourceID] = append(g.forward[sourceID], targetID)
	g.backward[targetID] = append(g.backward[targetID], sourceID)
	g.recomputeLocked()
	return nil
}

func (g *Graph) reachableLocked(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.forward[cur] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// recomputeLocked rederives locked/available from prerequisite completion.
// Completed, in-progress and remedial nodes keep their status.
func (g *Graph) recomputeLocked() {
	for id, n := range g.nodes {
		switch n.Status {
		case StatusCompleted, StatusInProgress, StatusRemedial:
			continue
		}
		ready := true
		for _, pre := range g.backward[id] {
			if g.nodes[pre].Status != StatusCompleted {
				ready = false
				break
			}
		}
		if ready {
			n.Status = StatusAvailable
		} else {
			n.Status = StatusLocked
		}
	}
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n.clone(), nil
}

// Nodes returns copies of every node, sorted by id for stable output.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns every prerequisite edge, sorted for stable output.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgesLocked()
}

func (g *Graph) edgesLocked() []Edge {
	var out []Edge
	for src, deps := range g.forward {
		for _, dst := range deps {
			out = append(out, Edge{SourceID: src, TargetID: dst})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out
}

// AvailableNodes lists nodes the learner can start right now: every
// prerequisite completed and the node itself not yet completed. Remedial
// nodes count, they have no prerequisites by construction.
func (g *Graph) AvailableNodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Node
	for _, n := range g.nodes {
		if n.Status == StatusAvailable || n.Status == StatusRemedial {
			out = append(out, n.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MarkInProgress transitions an available or remedial node into in_progress.
func (g *Graph) MarkInProgress(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	switch n.Status {
	case StatusAvailable, StatusRemedial, StatusInProgress:
		n.Status = StatusInProgress
		return nil
	default:
		return fmt.Errorf("%w: %s is %s", ErrNodeNotAvailable, id, n.Status)
	}
}

// MarkCompleted completes a node. Fails with PrerequisiteUnmetError when any
// prerequisite is still open, leaving the graph unchanged. Completing a
// remedial node releases its parent's active-remedial slot. Idempotent on an
// already completed node.
func (g *Graph) MarkCompleted(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if n.Status == StatusCompleted {
		return nil
	}
	var missing []string
	for _, pre := range g.backward[id] {
		if g.nodes[pre].Status != StatusCompleted {
			missing = append(missing, pre)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &PrerequisiteUnmetError{NodeID: id, Missing: missing}
	}
	n.Status = StatusCompleted
	if n.RemedialFor != "" {
		if parent, ok := g.nodes[n.RemedialFor]; ok && parent.ActiveRemedialID == id {
			parent.ActiveRemedialID = ""
		}
	}
	g.recomputeLocked()
	return nil
}

// Relabel replaces a node's label. Relabeling to the current label is a
// no-op, so the evaluator can apply its decision more than once safely.
func (g *Graph) Relabel(id, label string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n.Label = label
	return nil
}

// SpawnRemedial creates a remediation node for a failed parent. The child
// has no prerequisites and carries an informational link back to the parent.
// A parent can hold at most one uncompleted remedial child; the parent drops
// back to available so the learner can retake it after remediation.
func (g *Graph) SpawnRemedial(parentID, label string) (*Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	parent, ok := g.nodes[parentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, parentID)
	}
	if parent.ActiveRemedialID != "" {
		return nil, fmt.Errorf("%w: %s has %s", ErrActiveRemedial, parentID, parent.ActiveRemedialID)
	}
	g.remedialSeq++
	id := fmt.Sprintf("remedial_%s_%d", parentID, g.remedialSeq)
	child := &Node{
		ID:          id,
		Label:       label,
		Status:      StatusRemedial,
		RemedialFor: parentID,
	}
	g.nodes[id] = child
	parent.ActiveRemedialID = id
	if parent.Status == StatusInProgress {
		parent.Status = StatusAvailable
	}
	return child.clone(), nil
}

// CommitCycle applies a finished generation cycle's output to a node in one
// step. Either every field lands or, when the node is unknown, nothing does.
func (g *Graph) CommitCycle(id string, c CycleContent) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if c.Label != "" {
		n.Label = c.Label
	}
	n.Content = c.Content
	n.Quiz = c.Quiz
	n.Equation = c.Equation
	n.RiskScore = c.RiskScore
	n.NeedsQuizRegen = c.NeedsQuizRegen
	n.NeedsEquationRegen = c.NeedsEquationRegen
	return nil
}
