package services

import (
	"context"
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

// CurriculumService owns the learner-facing curriculum lifecycle: design a
// topic graph, expose it, and kick off generation cycles for its modules.
type CurriculumService interface {
	CreateCurriculum(ctx context.Context, userID uuid.UUID, topic, learnerContext string) (*types.CurriculumSession, *curriculum.Graph, error)
	GetCurriculum(ctx context.Context, userID uuid.UUID, topic string) (*types.CurriculumSession, *curriculum.Graph, error)
	GetDOT(ctx context.Context, userID uuid.UUID, topic string) (string, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]*types.CurriculumSession, error)
	StartModule(ctx context.Context, userID uuid.UUID, topic, nodeID string) (*types.GenerationCycle, error)
}

type curriculumService struct {
	store     CurriculumStore
	cycleRepo repos.GenerationCycleRepo
	architect *agents.Architect
	log       *logger.Logger
}

func NewCurriculumService(store CurriculumStore, cycleRepo repos.GenerationCycleRepo, architect *agents.Architect, baseLog *logger.Logger) CurriculumService {
	return &curriculumService{
		store:     store,
		cycleRepo: cycleRepo,
		architect: architect,
		log:       baseLog.With("service", "CurriculumService"),
	}
}

// CreateCurriculum designs a fresh graph for the topic. A session already
// saved for this (user, topic) is returned as is, the architect is not
// re-run.
func (s *curriculumService) CreateCurriculum(ctx context.Context, userID uuid.UUID, topic, learnerContext string) (*types.CurriculumSession, *curriculum.Graph, error) {
	if g, session, err := s.store.Load(ctx, userID, topic); err == nil {
		s.log.Info("reusing existing session", "session_id", session.ID, "topic", topic)
		return session, g, nil
	}

	g, err := s.architect.Design(ctx, topic, learnerContext)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.store.Create(ctx, userID, g)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("curriculum created", "session_id", session.ID, "topic", topic, "nodes", len(g.Nodes()))
	return session, g, nil
}

func (s *curriculumService) GetCurriculum(ctx context.Context, userID uuid.UUID, topic string) (*types.CurriculumSession, *curriculum.Graph, error) {
	g, session, err := s.store.Load(ctx, userID, topic)
	if err != nil {
		return nil, nil, err
	}
	return session, g, nil
}

func (s *curriculumService) GetDOT(ctx context.Context, userID uuid.UUID, topic string) (string, error) {
	g, _, err := s.store.Load(ctx, userID, topic)
	if err != nil {
		return "", err
	}
	return g.DOT(), nil
}

func (s *curriculumService) ListSessions(ctx context.Context, userID uuid.UUID) ([]*types.CurriculumSession, error) {
	return s.store.ListSessions(ctx, userID)
}

// StartModule moves the node into in_progress and queues a generation cycle
// for the worker to claim.
func (s *curriculumService) StartModule(ctx context.Context, userID uuid.UUID, topic, nodeID string) (*types.GenerationCycle, error) {
	g, session, err := s.store.Load(ctx, userID, topic)
	if err != nil {
		return nil, err
	}
	node, err := g.Node(nodeID)
	if err != nil {
		return nil, err
	}
	if err := g.MarkInProgress(nodeID); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, userID, g); err != nil {
		return nil, err
	}

	now := time.Now()
	cycle := &types.GenerationCycle{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: session.ID,
		NodeID:    nodeID,
		NodeLabel: node.Label,
		Status:    types.CycleStatusQueued,
		Stage:     "queued",
		Result:    datatypes.JSON([]byte(`{}`)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.cycleRepo.Create(ctx, nil, cycle); err != nil {
		return nil, fmt.Errorf("queue generation cycle: %w", err)
	}
	s.log.Info("cycle queued", "cycle_id", cycle.ID, "node_id", nodeID)
	return cycle, nil
}
