package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/curricula-backend/internal/agents"
	"github.com/yungbote/curricula-backend/internal/curriculum"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/repos"
	"github.com/yungbote/curricula-backend/internal/types"
)

// passingCorrectCount is the smallest correct count with score >= 0.70 on
// the fixed 10-question quiz.
const (
	PassThreshold       = 0.70
	passingCorrectCount = 7
)

// QuizSubmission is the learner's answers, one selected option per question
// in quiz order.
type QuizSubmission struct {
	NodeID   string `json:"node_id"`
	Selected []int  `json:"selected"`
}

// GradeResult reports the grade and any remediation that followed.
type GradeResult struct {
	Score          float64 `json:"score"`
	CorrectCount   int     `json:"correct_count"`
	Passed         bool    `json:"passed"`
	RemedialNodeID string  `json:"remedial_node_id,omitempty"`
	RemedialLabel  string  `json:"remedial_label,omitempty"`
	RemedialCycle  string  `json:"remedial_cycle_id,omitempty"`
}

// GradingService scores quiz submissions and applies the outcome to the
// graph: completion on pass, a remedial child plus a fresh generation cycle
// on fail.
type GradingService interface {
	SubmitQuiz(ctx context.Context, userID uuid.UUID, topic string, sub QuizSubmission) (*GradeResult, error)
}

type gradingService struct {
	store       CurriculumStore
	attemptRepo repos.QuizAttemptRepo
	cycleRepo   repos.GenerationCycleRepo
	evaluator   *agents.Evaluator
	log         *logger.Logger
}

func NewGradingService(store CurriculumStore, attemptRepo repos.QuizAttemptRepo, cycleRepo repos.GenerationCycleRepo, evaluator *agents.Evaluator, baseLog *logger.Logger) GradingService {
	return &gradingService{
		store:       store,
		attemptRepo: attemptRepo,
		cycleRepo:   cycleRepo,
		evaluator:   evaluator,
		log:         baseLog.With("service", "GradingService"),
	}
}

func (s *gradingService) SubmitQuiz(ctx context.Context, userID uuid.UUID, topic string, sub QuizSubmission) (*GradeResult, error) {
	g, session, err := s.store.Load(ctx, userID, topic)
	if err != nil {
		return nil, err
	}
	node, err := g.Node(sub.NodeID)
	if err != nil {
		return nil, err
	}
	if len(node.Quiz) != agents.QuizQuestionCount {
		return nil, fmt.Errorf("node %s has no quiz to grade", sub.NodeID)
	}
	if len(sub.Selected) != len(node.Quiz) {
		return nil, fmt.Errorf("expected %d answers, got %d", len(node.Quiz), len(sub.Selected))
	}

	answers := make([]types.QuizAnswer, len(node.Quiz))
	correct := 0
	for i, item := range node.Quiz {
		ok := sub.Selected[i] == item.CorrectOptionIndex
		if ok {
			correct++
		}
		answers[i] = types.QuizAnswer{
			Question:       item.Question,
			SelectedOption: sub.Selected[i],
			CorrectOption:  item.CorrectOptionIndex,
			Correct:        ok,
		}
	}
	score := float64(correct) / float64(agents.QuizQuestionCount)
	passed := correct >= passingCorrectCount

	// The attempt lands in long-term memory before any graph side effect,
	// so the audit trail survives a downstream failure.
	rawAnswers, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	attempt := &types.QuizAttempt{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: session.ID,
		Topic:     topic,
		NodeID:    node.ID,
		NodeLabel: node.Label,
		Answers:   datatypes.JSON(rawAnswers),
		Score:     score,
		Passed:    passed,
		CreatedAt: time.Now(),
	}
	if _, err := s.attemptRepo.Create(ctx, nil, attempt); err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}

	result := &GradeResult{Score: score, CorrectCount: correct, Passed: passed}
	if passed {
		if err := g.MarkCompleted(node.ID); err != nil {
			return nil, err
		}
		if err := s.store.Save(ctx, userID, g); err != nil {
			return nil, err
		}
		s.log.Info("module passed", "node_id", node.ID, "score", score)
		return result, nil
	}

	remedial, err := s.spawnRemedial(ctx, userID, g, session, node, answers)
	if err != nil {
		return nil, err
	}
	result.RemedialNodeID = remedial.ID
	result.RemedialLabel = remedial.Label
	if cycleID := s.enqueueRemedialCycle(ctx, userID, session.ID, remedial); cycleID != uuid.Nil {
		result.RemedialCycle = cycleID.String()
	}
	s.log.Info("module failed, remediation spawned",
		"node_id", node.ID,
		"score", score,
		"remedial_id", remedial.ID,
	)
	return result, nil
}

func (s *gradingService) spawnRemedial(ctx context.Context, userID uuid.UUID, g *curriculum.Graph, session *types.CurriculumSession, node *curriculum.Node, answers []types.QuizAnswer) (*curriculum.Node, error) {
	var missed []string
	for _, a := range answers {
		if !a.Correct {
			missed = append(missed, a.Question)
		}
	}

	label, err := s.evaluator.ProposeRemedialLabel(ctx, node.Label, missed)
	if err != nil {
		s.log.Warn("remedial label proposal failed, using fallback", "error", err)
		label = "Review: " + node.Label
	}

	remedial, err := g.SpawnRemedial(node.ID, label)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, userID, g); err != nil {
		return nil, err
	}
	return remedial, nil
}

// enqueueRemedialCycle re-enters the generation pipeline for the new node.
// Queueing is best effort: the remedial node already exists and a cycle can
// be started manually if this fails.
func (s *gradingService) enqueueRemedialCycle(ctx context.Context, userID, sessionID uuid.UUID, remedial *curriculum.Node) uuid.UUID {
	now := time.Now()
	cycle := &types.GenerationCycle{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		NodeID:    remedial.ID,
		NodeLabel: remedial.Label,
		Status:    types.CycleStatusQueued,
		Stage:     "queued",
		Result:    datatypes.JSON([]byte(`{}`)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.cycleRepo.Create(ctx, nil, cycle); err != nil {
		s.log.Warn("queue remedial cycle failed", "node_id", remedial.ID, "error", err)
		return uuid.Nil
	}
	return cycle.ID
}
