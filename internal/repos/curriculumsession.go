package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/types"
)

type CurriculumSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.CurriculumSession) (*types.CurriculumSession, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.CurriculumSession, error)
	GetByUserAndTopic(ctx context.Context, tx *gorm.DB, userID uuid.UUID, topic string) (*types.CurriculumSession, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CurriculumSession, error)
	UpdateGraphDoc(ctx context.Context, tx *gorm.DB, id uuid.UUID, doc datatypes.JSON) error
}

type curriculumSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCurriculumSessionRepo(db *gorm.DB, baseLog *logger.Logger) CurriculumSessionRepo {
	return &curriculumSessionRepo{db: db, log: baseLog.With("repo", "CurriculumSessionRepo")}
}

func (r *curriculumSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.CurriculumSession) (*types.CurriculumSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *curriculumSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.CurriculumSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var session types.CurriculumSession
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *curriculumSessionRepo) GetByUserAndTopic(ctx context.Context, tx *gorm.DB, userID uuid.UUID, topic string) (*types.CurriculumSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var session types.CurriculumSession
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND topic = ?", userID, topic).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *curriculumSessionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.CurriculumSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var sessions []*types.CurriculumSession
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *curriculumSessionRepo) UpdateGraphDoc(ctx context.Context, tx *gorm.DB, id uuid.UUID, doc datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.CurriculumSession{}).
		Where("id = ?", id).
		Update("graph_doc", doc).Error
}
