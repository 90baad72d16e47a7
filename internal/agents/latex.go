package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/platform/openai"
	"github.com/yungbote/curricula-backend/internal/platform/texrender"
)

// LaTeX produces the module's key formula as a rendered image. Topics without
// a meaningful formula yield an empty artifact, which is not an error.
type LaTeX struct {
	ai       openai.Client
	renderer texrender.Renderer
	log      *logger.Logger
}

func NewLaTeX(ai openai.Client, renderer texrender.Renderer, log *logger.Logger) *LaTeX {
	return &LaTeX{ai: ai, renderer: renderer, log: log.With("service", "LaTeXAgent")}
}

func (l *LaTeX) Kind() Kind { return KindLaTeX }

func (l *LaTeX) Run(ctx context.Context, req Request) (*Output, error) {
	system := "You write the single most important formula for a curriculum module in plain text math notation. " +
		"If the module has no meaningful formula, respond with exactly NONE."
	user := fmt.Sprintf("Topic: %s\nModule: %s", req.Topic, req.NodeLabel)

	markup, err := l.ai.GenerateText(ctx, system, user)
	if err != nil {
		return nil, classify(KindLaTeX, err)
	}
	markup = strings.TrimSpace(strings.Trim(strings.TrimSpace(markup), "`"))
	if markup == "" || strings.EqualFold(markup, "NONE") {
		return &Output{
			Kind:     KindLaTeX,
			Equation: &RenderedEquation{NodeID: req.NodeID},
		}, nil
	}

	art, err := l.renderer.Render(markup)
	if err != nil {
		return nil, &GenerationError{Agent: KindLaTeX, Err: fmt.Errorf("render formula: %w", err)}
	}
	return &Output{
		Kind:     KindLaTeX,
		Equation: &RenderedEquation{NodeID: req.NodeID, Artifact: art},
	}, nil
}
