package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/curricula-backend/internal/platform/logger"
)

func testLog() *logger.Logger { return logger.NewNop() }

func TestProfessorShapesPromptFromFailures(t *testing.T) {
	ai := &fakeAI{jsonOut: map[string]any{"content": "A derivative measures change."}}
	p := NewProfessor(ai, testLog())

	out, err := p.Run(context.Background(), Request{
		Topic:     "Calculus",
		NodeID:    "derivatives",
		NodeLabel: "Derivatives",
		History: []AttemptSummary{
			{NodeLabel: "Limits", Score: 0.4, Passed: false},
			{NodeLabel: "Functions", Score: 0.9, Passed: true},
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Kind != KindProfessor || out.Content == nil || out.Content.NodeID != "derivatives" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if !strings.Contains(ai.lastUser, "struggled with: Limits") {
		t.Fatalf("failed concepts not in prompt: %q", ai.lastUser)
	}
	if strings.Contains(ai.lastUser, "Functions") {
		t.Fatalf("passed concepts should not be listed as struggles: %q", ai.lastUser)
	}
}

func TestProfessorNoHistoryStillProduces(t *testing.T) {
	ai := &fakeAI{jsonOut: map[string]any{"content": "Lecture."}}
	p := NewProfessor(ai, testLog())
	out, err := p.Run(context.Background(), Request{Topic: "Calculus", NodeID: "n", NodeLabel: "Derivatives"})
	if err != nil || out.Content == nil {
		t.Fatalf("expected content with empty history, got %v / %v", out, err)
	}
	if strings.Contains(ai.lastUser, "struggled") {
		t.Fatalf("empty history should not claim struggles: %q", ai.lastUser)
	}
}

func TestProfessorEmptyContentIsGenerationError(t *testing.T) {
	p := NewProfessor(&fakeAI{jsonOut: map[string]any{"content": "  "}}, testLog())
	_, err := p.Run(context.Background(), Request{NodeID: "n"})
	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Agent != KindProfessor {
		t.Fatalf("expected professor GenerationError, got %v", err)
	}
}

func TestProfessorDeadlineIsTimeoutError(t *testing.T) {
	p := NewProfessor(&fakeAI{jsonErr: context.DeadlineExceeded}, testLog())
	_, err := p.Run(context.Background(), Request{NodeID: "n"})
	var te *TimeoutError
	if !errors.As(err, &te) || te.Agent != KindProfessor {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
}

func TestProctorHappyPath(t *testing.T) {
	ai := &fakeAI{jsonOut: map[string]any{"items": quizItemsJSON(QuizQuestionCount)}}
	p := NewProctor(ai, testLog())
	out, err := p.Run(context.Background(), Request{NodeID: "n", Topic: "Calculus", NodeLabel: "Derivatives"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Quiz == nil || len(out.Quiz.Items) != QuizQuestionCount {
		t.Fatalf("unexpected quiz: %+v", out.Quiz)
	}
}

func TestProctorWrongCountRejected(t *testing.T) {
	p := NewProctor(&fakeAI{jsonOut: map[string]any{"items": quizItemsJSON(9)}}, testLog())
	_, err := p.Run(context.Background(), Request{NodeID: "n"})
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError for 9 questions, got %v", err)
	}
}

func TestProctorBadAnswerIndexRejected(t *testing.T) {
	items := quizItemsJSON(QuizQuestionCount)
	items[3].(map[string]any)["correct_option_index"] = float64(7)
	p := NewProctor(&fakeAI{jsonOut: map[string]any{"items": items}}, testLog())
	_, err := p.Run(context.Background(), Request{NodeID: "n"})
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError for bad index, got %v", err)
	}
}

func TestLaTeXNoneYieldsEmptyArtifact(t *testing.T) {
	r := &fakeRenderer{}
	l := NewLaTeX(&fakeAI{textOut: "NONE"}, r, testLog())
	out, err := l.Run(context.Background(), Request{NodeID: "n", NodeLabel: "History of Art"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Equation == nil || !out.Equation.Artifact.Empty() {
		t.Fatalf("expected empty artifact, got %+v", out.Equation)
	}
	if r.lastMarkup != "" {
		t.Fatalf("renderer should not run for NONE")
	}
}

func TestLaTeXRendersMarkup(t *testing.T) {
	r := &fakeRenderer{}
	l := NewLaTeX(&fakeAI{textOut: "f'(x) = 2x"}, r, testLog())
	out, err := l.Run(context.Background(), Request{NodeID: "n", NodeLabel: "Derivatives"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Equation.Artifact.Empty() || r.lastMarkup != "f'(x) = 2x" {
		t.Fatalf("expected rendered artifact for markup, got %+v", out.Equation)
	}
}

func TestVerifierRequiresDraft(t *testing.T) {
	v := NewVerifier(&fakeAI{}, testLog())
	_, err := v.Run(context.Background(), Request{NodeID: "n"})
	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Agent != KindVerifier {
		t.Fatalf("expected verifier GenerationError, got %v", err)
	}
}

func TestVerifierClampsRisk(t *testing.T) {
	ai := &fakeAI{jsonOut: map[string]any{"risk_score": 1.7, "flagged_claims": []any{"claim"}}}
	v := NewVerifier(ai, testLog())
	out, err := v.Run(context.Background(), Request{NodeID: "n", Draft: &ContentDraft{NodeID: "n", Text: "text"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Verification.RiskScore != 1.0 {
		t.Fatalf("risk not clamped: %v", out.Verification.RiskScore)
	}
	if len(out.Verification.FlaggedClaims) != 1 {
		t.Fatalf("claims dropped: %+v", out.Verification)
	}
}

func TestArchitectBuildsGraph(t *testing.T) {
	ai := &fakeAI{jsonOut: map[string]any{
		"nodes": []any{
			map[string]any{"id": "limits", "label": "Limits"},
			map[string]any{"id": "continuity", "label": "Continuity"},
			map[string]any{"id": "derivatives", "label": "Derivatives"},
			map[string]any{"id": "chain_rule", "label": "Chain Rule"},
			map[string]any{"id": "integrals", "label": "Integrals"},
		},
		"edges": []any{
			map[string]any{"source_id": "limits", "target_id": "continuity"},
			map[string]any{"source_id": "continuity", "target_id": "derivatives"},
			map[string]any{"source_id": "derivatives", "target_id": "chain_rule"},
			map[string]any{"source_id": "derivatives", "target_id": "integrals"},
		},
	}}
	a := NewArchitect(ai, testLog())
	g, err := a.Design(context.Background(), "Calculus", "")
	if err != nil {
		t.Fatalf("Design: %v", err)
	}
	if len(g.Nodes()) != 5 {
		t.Fatalf("expected 5 nodes, got %d", len(g.Nodes()))
	}
	avail := g.AvailableNodes()
	if len(avail) != 1 || avail[0].ID != "limits" {
		t.Fatalf("expected limits available, got %+v", avail)
	}
}

func TestArchitectRejectsCyclicPlan(t *testing.T) {
	ai := &fakeAI{jsonOut: map[string]any{
		"nodes": []any{
			map[string]any{"id": "a", "label": "A"},
			map[string]any{"id": "b", "label": "B"},
			map[string]any{"id": "c", "label": "C"},
			map[string]any{"id": "d", "label": "D"},
			map[string]any{"id": "e", "label": "E"},
		},
		"edges": []any{
			map[string]any{"source_id": "a", "target_id": "b"},
			map[string]any{"source_id": "b", "target_id": "a"},
		},
	}}
	a := NewArchitect(ai, testLog())
	_, err := a.Design(context.Background(), "Calculus", "")
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError for cyclic plan, got %v", err)
	}
}
