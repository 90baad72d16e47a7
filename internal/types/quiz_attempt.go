package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// QuizAttempt is one graded quiz submission. Rows are append-only: they form
// the learner's long-term memory and are never updated or deleted.
type QuizAttempt struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_attempt_user_topic" json:"user_id"`
	SessionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"session_id"`
	Topic     string         `gorm:"not null;index:idx_attempt_user_topic" json:"topic"`
	NodeID    string         `gorm:"column:node_id;not null;index" json:"node_id"`
	NodeLabel string         `gorm:"column:node_label;not null" json:"node_label"`
	Answers   datatypes.JSON `gorm:"type:jsonb;column:answers;not null" json:"answers"`
	Score     float64        `gorm:"column:score;not null" json:"score"`
	Passed    bool           `gorm:"column:passed;not null" json:"passed"`
	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (QuizAttempt) TableName() string { return "quiz_attempt" }

// QuizAnswer is one graded (question, answer) pair inside Answers.
type QuizAnswer struct {
	Question       string `json:"question"`
	SelectedOption int    `json:"selected_option"`
	CorrectOption  int    `json:"correct_option"`
	Correct        bool   `json:"correct"`
}

