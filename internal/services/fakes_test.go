package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/curricula-backend/internal/types"
)

type fakeAttemptRepo struct {
	rows      []*types.QuizAttempt
	createErr error
}

func (f *fakeAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *types.QuizAttempt) (*types.QuizAttempt, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.rows = append(f.rows, attempt)
	return attempt, nil
}

func (f *fakeAttemptRepo) GetRecentByUserAndTopic(ctx context.Context, tx *gorm.DB, userID uuid.UUID, topic string, limit int) ([]*types.QuizAttempt, error) {
	var out []*types.QuizAttempt
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		row := f.rows[i]
		if row.UserID == userID && row.Topic == topic {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeCycleRepo struct {
	created []*types.GenerationCycle
}

func (f *fakeCycleRepo) Create(ctx context.Context, tx *gorm.DB, cycle *types.GenerationCycle) (*types.GenerationCycle, error) {
	f.created = append(f.created, cycle)
	return cycle, nil
}

func (f *fakeCycleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.GenerationCycle, error) {
	for _, c := range f.created {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCycleRepo) GetLatestBySessionAndNode(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, nodeID string) (*types.GenerationCycle, error) {
	for i := len(f.created) - 1; i >= 0; i-- {
		if f.created[i].SessionID == sessionID && f.created[i].NodeID == nodeID {
			return f.created[i], nil
		}
	}
	return nil, nil
}

func (f *fakeCycleRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.GenerationCycle, error) {
	return nil, nil
}

func (f *fakeCycleRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (f *fakeCycleRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

type fakeAI struct {
	jsonOut map[string]any
	jsonErr error
	textOut string
	textErr error
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	if f.jsonErr != nil {
		return nil, f.jsonErr
	}
	return f.jsonOut, nil
}

func (f *fakeAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.textOut, nil
}
