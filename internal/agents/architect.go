package agents

import (
	"context"
	"fmt"

	"github.com/yungbote/curricula-backend/internal/curriculum"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/platform/openai"
)

const (
	minCurriculumNodes = 5
	maxCurriculumNodes = 8
)

// Architect designs the initial curriculum DAG for a topic.
type Architect struct {
	ai  openai.Client
	log *logger.Logger
}

func NewArchitect(ai openai.Client, log *logger.Logger) *Architect {
	return &Architect{ai: ai, log: log.With("service", "ArchitectAgent")}
}

func (a *Architect) Kind() Kind { return KindArchitect }

// Design produces a fresh graph of minCurriculumNodes to maxCurriculumNodes
// modules with prerequisite edges. The plan is validated through the graph's
// own invariants, so a cyclic plan is rejected as malformed output.
func (a *Architect) Design(ctx context.Context, topic, learnerContext string) (*curriculum.Graph, error) {
	system := fmt.Sprintf(
		"You are a curriculum architect. Break the topic into %d to %d modules ordered by prerequisite, forming a directed acyclic graph. Use short snake_case ids.",
		minCurriculumNodes, maxCurriculumNodes,
	)
	user := fmt.Sprintf("Topic: %s", topic)
	if learnerContext != "" {
		user += fmt.Sprintf("\nLearner context: %s", learnerContext)
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"nodes": map[string]any{
				"type":     "array",
				"minItems": minCurriculumNodes,
				"maxItems": maxCurriculumNodes,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":    map[string]any{"type": "string"},
						"label": map[string]any{"type": "string"},
					},
					"required":             []string{"id", "label"},
					"additionalProperties": false,
				},
			},
			"edges": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"source_id": map[string]any{"type": "string"},
						"target_id": map[string]any{"type": "string"},
					},
					"required":             []string{"source_id", "target_id"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"nodes", "edges"},
		"additionalProperties": false,
	}

	out, err := a.ai.GenerateJSON(ctx, system, user, "curriculum_plan", schema)
	if err != nil {
		return nil, classify(KindArchitect, err)
	}

	var plan struct {
		Nodes []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"nodes"`
		Edges []struct {
			SourceID string `json:"source_id"`
			TargetID string `json:"target_id"`
		} `json:"edges"`
	}
	if err := decodeInto(out, &plan); err != nil {
		return nil, &GenerationError{Agent: KindArchitect, Err: fmt.Errorf("decode plan: %w", err)}
	}
	if len(plan.Nodes) < minCurriculumNodes || len(plan.Nodes) > maxCurriculumNodes {
		return nil, &GenerationError{Agent: KindArchitect, Err: fmt.Errorf("plan has %d nodes", len(plan.Nodes))}
	}

	g := curriculum.New(topic, learnerContext)
	for _, n := range plan.Nodes {
		if err := g.AddNode(n.ID, n.Label); err != nil {
			return nil, &GenerationError{Agent: KindArchitect, Err: fmt.Errorf("plan node %s: %w", n.ID, err)}
		}
	}
	for _, e := range plan.Edges {
		if err := g.AddEdge(e.SourceID, e.TargetID); err != nil {
			return nil, &GenerationError{Agent: KindArchitect, Err: fmt.Errorf("plan edge %s->%s: %w", e.SourceID, e.TargetID, err)}
		}
	}
	if len(g.AvailableNodes()) == 0 {
		return nil, &GenerationError{Agent: KindArchitect, Err: fmt.Errorf("plan has no startable module")}
	}
	return g, nil
}
