package agents

import (
	"context"
	"fmt"

	"github.com/yungbote/curricula-backend/internal/curriculum"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/platform/openai"
)

const optionsPerQuestion = 4

// Proctor writes the module quiz: exactly QuizQuestionCount multiple-choice
// questions. Anything else is malformed output and fails the agent.
type Proctor struct {
	ai  openai.Client
	log *logger.Logger
}

func NewProctor(ai openai.Client, log *logger.Logger) *Proctor {
	return &Proctor{ai: ai, log: log.With("service", "ProctorAgent")}
}

func (p *Proctor) Kind() Kind { return KindProctor }

func (p *Proctor) Run(ctx context.Context, req Request) (*Output, error) {
	system := fmt.Sprintf(
		"You are a proctor writing a quiz for a curriculum module. Produce exactly %d multiple-choice questions, each with %d options and exactly one correct answer.",
		QuizQuestionCount, optionsPerQuestion,
	)
	user := fmt.Sprintf("Topic: %s\nModule: %s\nWrite the quiz.", req.Topic, req.NodeLabel)

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type":     "array",
				"minItems": QuizQuestionCount,
				"maxItems": QuizQuestionCount,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":     "array",
							"minItems": optionsPerQuestion,
							"maxItems": optionsPerQuestion,
							"items":    map[string]any{"type": "string"},
						},
						"correct_option_index": map[string]any{"type": "integer"},
						"explanation":          map[string]any{"type": "string"},
					},
					"required":             []string{"question", "options", "correct_option_index", "explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"items"},
		"additionalProperties": false,
	}

	out, err := p.ai.GenerateJSON(ctx, system, user, "module_quiz", schema)
	if err != nil {
		return nil, classify(KindProctor, err)
	}

	var parsed struct {
		Items []curriculum.QuizItem `json:"items"`
	}
	if err := decodeInto(out, &parsed); err != nil {
		return nil, &GenerationError{Agent: KindProctor, Err: fmt.Errorf("decode quiz: %w", err)}
	}
	if len(parsed.Items) != QuizQuestionCount {
		return nil, &GenerationError{Agent: KindProctor, Err: fmt.Errorf("expected %d questions, got %d", QuizQuestionCount, len(parsed.Items))}
	}
	for i, item := range parsed.Items {
		if len(item.Options) != optionsPerQuestion {
			return nil, &GenerationError{Agent: KindProctor, Err: fmt.Errorf("question %d has %d options", i, len(item.Options))}
		}
		if item.CorrectOptionIndex < 0 || item.CorrectOptionIndex >= optionsPerQuestion {
			return nil, &GenerationError{Agent: KindProctor, Err: fmt.Errorf("question %d has correct index %d out of range", i, item.CorrectOptionIndex)}
		}
	}

	return &Output{
		Kind: KindProctor,
		Quiz: &QuizDraft{NodeID: req.NodeID, Items: parsed.Items},
	}, nil
}
