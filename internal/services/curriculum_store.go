package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/curricula-backend/internal/curriculum"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/platform/neo4jdb"
	"github.com/yungbote/curricula-backend/internal/repos"
	"github.com/yungbote/curricula-backend/internal/types"
)

// ErrSessionNotFound is returned when a (user, topic) pair has no saved
// curriculum.
var ErrSessionNotFound = errors.New("curriculum session not found")

// CurriculumStore persists whole curriculum graphs keyed by (user, topic).
// One jsonb document per session, written in a single statement so a commit
// is atomic.
type CurriculumStore interface {
	Create(ctx context.Context, userID uuid.UUID, g *curriculum.Graph) (*types.CurriculumSession, error)
	Save(ctx context.Context, userID uuid.UUID, g *curriculum.Graph) error
	Load(ctx context.Context, userID uuid.UUID, topic string) (*curriculum.Graph, *types.CurriculumSession, error)
	LoadByID(ctx context.Context, sessionID uuid.UUID) (*curriculum.Graph, *types.CurriculumSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID) ([]*types.CurriculumSession, error)
}

type gormCurriculumStore struct {
	db          *gorm.DB
	sessionRepo repos.CurriculumSessionRepo
	graphMirror *neo4jdb.Client
	log         *logger.Logger
}

// NewCurriculumStore builds the postgres-backed store. graphMirror may be
// nil; mirroring is best effort and never fails a save.
func NewCurriculumStore(db *gorm.DB, sessionRepo repos.CurriculumSessionRepo, graphMirror *neo4jdb.Client, baseLog *logger.Logger) CurriculumStore {
	return &gormCurriculumStore{
		db:          db,
		sessionRepo: sessionRepo,
		graphMirror: graphMirror,
		log:         baseLog.With("service", "CurriculumStore"),
	}
}

func (s *gormCurriculumStore) Create(ctx context.Context, userID uuid.UUID, g *curriculum.Graph) (*types.CurriculumSession, error) {
	raw, err := curriculum.MarshalDoc(g.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("marshal graph: %w", err)
	}
	now := time.Now()
	session := &types.CurriculumSession{
		ID:             uuid.New(),
		UserID:         userID,
		Topic:          g.Topic(),
		LearnerContext: g.Context(),
		GraphDoc:       datatypes.JSON(raw),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.sessionRepo.Create(ctx, nil, session); err != nil {
		return nil, err
	}
	s.mirror(ctx, session.ID, g)
	return session, nil
}

func (s *gormCurriculumStore) Save(ctx context.Context, userID uuid.UUID, g *curriculum.Graph) error {
	session, err := s.sessionRepo.GetByUserAndTopic(ctx, nil, userID, g.Topic())
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: user %s topic %q", ErrSessionNotFound, userID, g.Topic())
	}
	raw, err := curriculum.MarshalDoc(g.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	if err := s.sessionRepo.UpdateGraphDoc(ctx, nil, session.ID, datatypes.JSON(raw)); err != nil {
		return err
	}
	s.mirror(ctx, session.ID, g)
	return nil
}

func (s *gormCurriculumStore) Load(ctx context.Context, userID uuid.UUID, topic string) (*curriculum.Graph, *types.CurriculumSession, error) {
	session, err := s.sessionRepo.GetByUserAndTopic(ctx, nil, userID, topic)
	if err != nil {
		return nil, nil, err
	}
	return s.rebuild(session, fmt.Sprintf("user %s topic %q", userID, topic))
}

func (s *gormCurriculumStore) LoadByID(ctx context.Context, sessionID uuid.UUID) (*curriculum.Graph, *types.CurriculumSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, nil, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return s.rebuild(session, sessionID.String())
}

func (s *gormCurriculumStore) ListSessions(ctx context.Context, userID uuid.UUID) ([]*types.CurriculumSession, error) {
	return s.sessionRepo.ListByUser(ctx, nil, userID)
}

func (s *gormCurriculumStore) rebuild(session *types.CurriculumSession, ref string) (*curriculum.Graph, *types.CurriculumSession, error) {
	if session == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, ref)
	}
	g, err := curriculum.UnmarshalDoc(session.GraphDoc)
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild graph for session %s: %w", session.ID, err)
	}
	return g, session, nil
}

// mirror pushes the graph shape into neo4j for exploration. Failures are
// logged and swallowed; postgres remains the source of truth.
func (s *gormCurriculumStore) mirror(ctx context.Context, sessionID uuid.UUID, g *curriculum.Graph) {
	if s.graphMirror == nil {
		return
	}
	nodes := g.Nodes()
	mNodes := make([]neo4jdb.MirrorNode, 0, len(nodes))
	for _, n := range nodes {
		mNodes = append(mNodes, neo4jdb.MirrorNode{ID: n.ID, Label: n.Label, Status: string(n.Status)})
	}
	edges := g.Edges()
	mEdges := make([]neo4jdb.MirrorEdge, 0, len(edges))
	for _, e := range edges {
		mEdges = append(mEdges, neo4jdb.MirrorEdge{SourceID: e.SourceID, TargetID: e.TargetID})
	}
	if err := s.graphMirror.MirrorGraph(ctx, sessionID.String(), mNodes, mEdges); err != nil {
		s.log.Warn("graph mirror failed", "session_id", sessionID, "error", err)
	}
}
