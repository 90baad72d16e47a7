package agents

import (
	"context"

	"github.com/yungbote/curricula-backend/internal/curriculum"
	"github.com/yungbote/curricula-backend/internal/platform/texrender"
)

// Kind identifies one of the agent capabilities.
type Kind string

const (
	KindArchitect Kind = "architect"
	KindProfessor Kind = "professor"
	KindProctor   Kind = "proctor"
	KindLaTeX     Kind = "latex"
	KindVerifier  Kind = "verifier"
	KindEvaluator Kind = "evaluator"
)

// QuizQuestionCount is the fixed quiz length. Grading assumes it.
const QuizQuestionCount = 10

// AttemptSummary is the slice of quiz history an agent may read. Agents get
// their own copy and never write back.
type AttemptSummary struct {
	NodeLabel string
	Score     float64
	Passed    bool
	Missed    []string
}

// Request carries the inputs for one agent invocation. Draft is only set for
// the verifier, whose input is the professor's output.
type Request struct {
	Topic          string
	NodeID         string
	NodeLabel      string
	LearnerContext string
	History        []AttemptSummary
	Draft          *ContentDraft
}

// ContentDraft is the professor's lecture text for one node.
type ContentDraft struct {
	NodeID string
	Text   string
}

// QuizDraft holds exactly QuizQuestionCount items for one node.
type QuizDraft struct {
	NodeID string
	Items  []curriculum.QuizItem
}

// RenderedEquation is the rendered formula artifact. Artifact may be empty
// when no equation fits the topic.
type RenderedEquation struct {
	NodeID   string
	Artifact texrender.Artifact
}

// VerificationResult is the A2A payload: a hallucination risk score in
// [0, 1] plus the claims that drove it. Read-only once handed off.
type VerificationResult struct {
	NodeID        string
	RiskScore     float64
	FlaggedClaims []string
}

// EvaluationDecision is the evaluator's verdict on a candidate label.
type EvaluationDecision struct {
	NodeID     string
	FinalLabel string
	ShouldFlag bool
	RiskScore  float64
}

// Output is the tagged union every agent returns. Exactly one variant is set,
// matching Kind.
type Output struct {
	Kind         Kind
	Content      *ContentDraft
	Quiz         *QuizDraft
	Equation     *RenderedEquation
	Verification *VerificationResult
	Evaluation   *EvaluationDecision
}

// Agent is the shared contract for the generation-cycle capabilities.
type Agent interface {
	Kind() Kind
	Run(ctx context.Context, req Request) (*Output, error)
}
