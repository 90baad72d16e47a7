package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/platform/openai"
)

// Professor writes the lecture for a node. It reads the learner's recent quiz
// history and leans on the concepts they struggled with.
type Professor struct {
	ai  openai.Client
	log *logger.Logger
}

func NewProfessor(ai openai.Client, log *logger.Logger) *Professor {
	return &Professor{ai: ai, log: log.With("service", "ProfessorAgent")}
}

func (p *Professor) Kind() Kind { return KindProfessor }

func (p *Professor) Run(ctx context.Context, req Request) (*Output, error) {
	system := "You are a professor writing a tailored lecture for a single curriculum module. " +
		"Write clear expository prose a motivated student can follow without outside material."

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nModule: %s\n", req.Topic, req.NodeLabel)
	if req.LearnerContext != "" {
		fmt.Fprintf(&b, "Learner context: %s\n", req.LearnerContext)
	}
	if summary := struggleSummary(req.History); summary != "" {
		fmt.Fprintf(&b, "The student has recently struggled with: %s. Focus the explanation on these foundational gaps.\n", summary)
	}
	b.WriteString("Write the lecture for this module.")

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{"type": "string"},
		},
		"required":             []string{"content"},
		"additionalProperties": false,
	}

	out, err := p.ai.GenerateJSON(ctx, system, b.String(), "lecture_content", schema)
	if err != nil {
		return nil, classify(KindProfessor, err)
	}
	content, _ := out["content"].(string)
	if strings.TrimSpace(content) == "" {
		return nil, &GenerationError{Agent: KindProfessor, Err: fmt.Errorf("empty lecture content")}
	}

	return &Output{
		Kind:    KindProfessor,
		Content: &ContentDraft{NodeID: req.NodeID, Text: content},
	}, nil
}

// struggleSummary lists the distinct module labels of failed attempts.
func struggleSummary(history []AttemptSummary) string {
	seen := map[string]bool{}
	for _, a := range history {
		if !a.Passed && a.NodeLabel != "" {
			seen[a.NodeLabel] = true
		}
	}
	if len(seen) == 0 {
		return ""
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return strings.Join(labels, ", ")
}
