package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/curricula-backend/internal/curriculum"
	"github.com/yungbote/curricula-backend/internal/types"
)

// memoryCurriculumStore keeps sessions in a map. It backs tests and local
// runs without postgres.
type memoryCurriculumStore struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*types.CurriculumSession
	failNext error
}

func NewMemoryCurriculumStore() CurriculumStore {
	return &memoryCurriculumStore{byID: map[uuid.UUID]*types.CurriculumSession{}}
}

func (s *memoryCurriculumStore) Create(ctx context.Context, userID uuid.UUID, g *curriculum.Graph) (*types.CurriculumSession, error) {
	raw, err := curriculum.MarshalDoc(g.Snapshot())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
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
	s.byID[session.ID] = session
	return session, nil
}

func (s *memoryCurriculumStore) Save(ctx context.Context, userID uuid.UUID, g *curriculum.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	for _, session := range s.byID {
		if session.UserID == userID && session.Topic == g.Topic() {
			raw, err := curriculum.MarshalDoc(g.Snapshot())
			if err != nil {
				return err
			}
			session.GraphDoc = datatypes.JSON(raw)
			session.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("%w: user %s topic %q", ErrSessionNotFound, userID, g.Topic())
}

func (s *memoryCurriculumStore) Load(ctx context.Context, userID uuid.UUID, topic string) (*curriculum.Graph, *types.CurriculumSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.byID {
		if session.UserID == userID && session.Topic == topic {
			return rebuildSession(session)
		}
	}
	return nil, nil, fmt.Errorf("%w: user %s topic %q", ErrSessionNotFound, userID, topic)
}

func (s *memoryCurriculumStore) LoadByID(ctx context.Context, sessionID uuid.UUID) (*curriculum.Graph, *types.CurriculumSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byID[sessionID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return rebuildSession(session)
}

func (s *memoryCurriculumStore) ListSessions(ctx context.Context, userID uuid.UUID) ([]*types.CurriculumSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.CurriculumSession
	for _, session := range s.byID {
		if session.UserID == userID {
			out = append(out, session)
		}
	}
	return out, nil
}

func rebuildSession(session *types.CurriculumSession) (*curriculum.Graph, *types.CurriculumSession, error) {
	g, err := curriculum.UnmarshalDoc(session.GraphDoc)
	if err != nil {
		return nil, nil, err
	}
	return g, session, nil
}
