package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/types"
)

type GenerationCycleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cycle *types.GenerationCycle) (*types.GenerationCycle, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.GenerationCycle, error)
	GetLatestBySessionAndNode(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, nodeID string) (*types.GenerationCycle, error)

	// ClaimNextRunnable picks the next cycle that is:
	// - queued
	// - or failed with attempts < maxAttempts and last_error_at past retryDelay
	// - or running with a stale heartbeat (crash recovery)
	// and marks it running under SKIP LOCKED so workers never double-claim.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.GenerationCycle, error)

	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type generationCycleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationCycleRepo(db *gorm.DB, baseLog *logger.Logger) GenerationCycleRepo {
	return &generationCycleRepo{db: db, log: baseLog.With("repo", "GenerationCycleRepo")}
}

func (r *generationCycleRepo) Create(ctx context.Context, tx *gorm.DB, cycle *types.GenerationCycle) (*types.GenerationCycle, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(cycle).Error; err != nil {
		return nil, err
	}
	return cycle, nil
}

func (r *generationCycleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.GenerationCycle, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cycle types.GenerationCycle
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&cycle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cycle, nil
}

func (r *generationCycleRepo) GetLatestBySessionAndNode(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, nodeID string) (*types.GenerationCycle, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cycle types.GenerationCycle
	err := transaction.WithContext(ctx).
		Where("session_id = ? AND node_id = ?", sessionID, nodeID).
		Order("created_at DESC").
		Limit(1).
		Find(&cycle).Error
	if err != nil {
		return nil, err
	}
	if cycle.ID == uuid.Nil {
		return nil, nil
	}
	return &cycle, nil
}

func (r *generationCycleRepo) ClaimNextRunnable(
	ctx context.Context,
	tx *gorm.DB,
	maxAttempts int,
	retryDelay time.Duration,
	staleRunning time.Duration,
) (*types.GenerationCycle, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)

	var claimed *types.GenerationCycle

	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var cycle types.GenerationCycle

		q := txx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				(
					status = ?
					OR (
						status = ?
						AND attempts < ?
						AND (last_error_at IS NULL OR last_error_at < ?)
					)
					OR (
						status = ?
						AND heartbeat_at IS NOT NULL
						AND heartbeat_at < ?
					)
				)
			`, types.CycleStatusQueued, types.CycleStatusFailed, maxAttempts, retryCutoff, types.CycleStatusRunning, staleCutoff).
			Order("created_at ASC")

		qErr := q.First(&cycle).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}

		uErr := txx.Model(&types.GenerationCycle{}).
			Where("id = ?", cycle.ID).
			Updates(map[string]interface{}{
				"status":       types.CycleStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}

		cycle.Status = types.CycleStatusRunning
		cycle.Attempts++
		cycle.LockedAt = &now
		cycle.HeartbeatAt = &now
		claimed = &cycle
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *generationCycleRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return transaction.WithContext(ctx).
		Model(&types.GenerationCycle{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *generationCycleRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.GenerationCycle{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
