package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CurriculumSession is one learner's curriculum for one topic. The whole
// graph is stored as a single jsonb document so a cycle commit persists
// atomically.
type CurriculumSession struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_session_user_topic" json:"user_id"`
	Topic          string         `gorm:"not null;uniqueIndex:idx_session_user_topic" json:"topic"`
	LearnerContext string         `gorm:"column:learner_context" json:"learner_context"`
	GraphDoc       datatypes.JSON `gorm:"type:jsonb;column:graph_doc;not null" json:"graph_doc"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CurriculumSession) TableName() string { return "curriculum_session" }
