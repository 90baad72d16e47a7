package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/curricula-backend/internal/agents"
	"github.com/yungbote/curricula-backend/internal/curriculum"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
)

func quizFor(nodeID string) []curriculum.QuizItem {
	items := make([]curriculum.QuizItem, agents.QuizQuestionCount)
	for i := range items {
		items[i] = curriculum.QuizItem{
			Question:           fmt.Sprintf("%s q%d", nodeID, i),
			Options:            []string{"a", "b", "c", "d"},
			CorrectOptionIndex: 0,
		}
	}
	return items
}

// answers returns a submission with the given number of correct picks.
func answers(correct int) []int {
	out := make([]int, agents.QuizQuestionCount)
	for i := correct; i < len(out); i++ {
		out[i] = 1
	}
	return out
}

type gradingFixture struct {
	svc      GradingService
	store    CurriculumStore
	attempts *fakeAttemptRepo
	cycles   *fakeCycleRepo
	userID   uuid.UUID
}

func newGradingFixture(t *testing.T, remedialLabel string) *gradingFixture {
	t.Helper()
	store := NewMemoryCurriculumStore()
	attempts := &fakeAttemptRepo{}
	cycles := &fakeCycleRepo{}
	ai := &fakeAI{jsonOut: map[string]any{"remedial_node_label": remedialLabel, "reason": "gap"}}
	evaluator := agents.NewEvaluator(ai, logger.NewNop())
	svc := NewGradingService(store, attempts, cycles, evaluator, logger.NewNop())

	userID := uuid.New()
	g := curriculum.New("Calculus", "")
	if err := g.AddNode("limits", "Limits"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddNode("derivatives", "Derivatives"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddEdge("limits", "derivatives"); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := g.MarkInProgress("limits"); err != nil {
		t.Fatalf("MarkInProgress: %v", err)
	}
	if err := g.CommitCycle("limits", curriculum.CycleContent{Content: "text", Quiz: quizFor("limits")}); err != nil {
		t.Fatalf("CommitCycle: %v", err)
	}
	if _, err := store.Create(context.Background(), userID, g); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return &gradingFixture{svc: svc, store: store, attempts: attempts, cycles: cycles, userID: userID}
}

func TestSubmitQuizPassUnlocksDependents(t *testing.T) {
	f := newGradingFixture(t, "")

	res, err := f.svc.SubmitQuiz(context.Background(), f.userID, "Calculus", QuizSubmission{NodeID: "limits", Selected: answers(8)})
	if err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}
	if !res.Passed || res.Score != 0.8 || res.CorrectCount != 8 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.RemedialNodeID != "" {
		t.Fatalf("pass must not spawn remediation: %+v", res)
	}

	g, _, err := f.store.Load(context.Background(), f.userID, "Calculus")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	limits, _ := g.Node("limits")
	if limits.Status != curriculum.StatusCompleted {
		t.Fatalf("limits should be completed, got %s", limits.Status)
	}
	derivatives, _ := g.Node("derivatives")
	if derivatives.Status != curriculum.StatusAvailable {
		t.Fatalf("derivatives should unlock, got %s", derivatives.Status)
	}

	if len(f.attempts.rows) != 1 || !f.attempts.rows[0].Passed {
		t.Fatalf("attempt not recorded: %+v", f.attempts.rows)
	}
}

func TestSubmitQuizScoreIsExact(t *testing.T) {
	for correct := 0; correct <= agents.QuizQuestionCount; correct++ {
		f := newGradingFixture(t, "Review: Algebra")
		res, err := f.svc.SubmitQuiz(context.Background(), f.userID, "Calculus", QuizSubmission{NodeID: "limits", Selected: answers(correct)})
		if err != nil {
			t.Fatalf("correct=%d: %v", correct, err)
		}
		wantScore := float64(correct) / float64(agents.QuizQuestionCount)
		if res.Score != wantScore {
			t.Fatalf("correct=%d: score %v, want %v", correct, res.Score, wantScore)
		}
		if res.Passed != (correct >= 7) {
			t.Fatalf("correct=%d: passed=%v", correct, res.Passed)
		}
	}
}

func TestSubmitQuizFailSpawnsRemedialAndRequeues(t *testing.T) {
	f := newGradingFixture(t, "Review: Function Basics")

	res, err := f.svc.SubmitQuiz(context.Background(), f.userID, "Calculus", QuizSubmission{NodeID: "limits", Selected: answers(5)})
	if err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}
	if res.Passed || res.Score != 0.5 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.RemedialNodeID == "" || res.RemedialLabel != "Review: Function Basics" {
		t.Fatalf("remediation missing: %+v", res)
	}

	g, _, _ := f.store.Load(context.Background(), f.userID, "Calculus")
	remedial, err := g.Node(res.RemedialNodeID)
	if err != nil {
		t.Fatalf("remedial node not persisted: %v", err)
	}
	if remedial.Status != curriculum.StatusRemedial || remedial.RemedialFor != "limits" {
		t.Fatalf("unexpected remedial node: %+v", remedial)
	}

	if len(f.cycles.created) != 1 || f.cycles.created[0].NodeID != res.RemedialNodeID {
		t.Fatalf("remedial cycle not queued: %+v", f.cycles.created)
	}
	if len(f.attempts.rows) != 1 || f.attempts.rows[0].Passed {
		t.Fatalf("failed attempt not recorded: %+v", f.attempts.rows)
	}
}

func TestSubmitQuizFallbackRemedialLabel(t *testing.T) {
	f := newGradingFixture(t, "")
	// Empty proposal label is malformed output, the service falls back.
	res, err := f.svc.SubmitQuiz(context.Background(), f.userID, "Calculus", QuizSubmission{NodeID: "limits", Selected: answers(3)})
	if err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}
	if res.RemedialLabel != "Review: Limits" {
		t.Fatalf("expected fallback label, got %q", res.RemedialLabel)
	}
}

func TestSubmitQuizAttemptRecordedBeforeSideEffects(t *testing.T) {
	f := newGradingFixture(t, "Review: Algebra")
	ms := f.store.(*memoryCurriculumStore)
	ms.failNext = errors.New("db down")

	_, err := f.svc.SubmitQuiz(context.Background(), f.userID, "Calculus", QuizSubmission{NodeID: "limits", Selected: answers(8)})
	if err == nil {
		t.Fatalf("expected error from failed save")
	}
	if len(f.attempts.rows) != 1 {
		t.Fatalf("attempt must be appended before graph side effects: %+v", f.attempts.rows)
	}
}

func TestSubmitQuizWithoutQuizFails(t *testing.T) {
	f := newGradingFixture(t, "")
	_, err := f.svc.SubmitQuiz(context.Background(), f.userID, "Calculus", QuizSubmission{NodeID: "derivatives", Selected: answers(8)})
	if err == nil {
		t.Fatalf("grading a node without a quiz should fail")
	}
}
