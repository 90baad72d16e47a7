package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/yungbote/curricula-backend/internal/agents"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/repos"
	"github.com/yungbote/curricula-backend/internal/types"
)

// LTMService exposes the learner's long-term memory: their recent quiz
// attempts for a topic, summarized for agent consumption. Fewer attempts
// than the limit is normal, the caller gets whatever exists.
type LTMService interface {
	FetchRecentAttempts(ctx context.Context, userID uuid.UUID, topic string, limit int) ([]agents.AttemptSummary, error)
}

type ltmService struct {
	attemptRepo repos.QuizAttemptRepo
	log         *logger.Logger
}

func NewLTMService(attemptRepo repos.QuizAttemptRepo, baseLog *logger.Logger) LTMService {
	return &ltmService{attemptRepo: attemptRepo, log: baseLog.With("service", "LTMService")}
}

func (s *ltmService) FetchRecentAttempts(ctx context.Context, userID uuid.UUID, topic string, limit int) ([]agents.AttemptSummary, error) {
	rows, err := s.attemptRepo.GetRecentByUserAndTopic(ctx, nil, userID, topic, limit)
	if err != nil {
		return nil, err
	}
	out := make([]agents.AttemptSummary, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		out = append(out, summarize(row, s.log))
	}
	return out, nil
}

func summarize(row *types.QuizAttempt, log *logger.Logger) agents.AttemptSummary {
	summary := agents.AttemptSummary{
		NodeLabel: row.NodeLabel,
		Score:     row.Score,
		Passed:    row.Passed,
	}
	var answers []types.QuizAnswer
	if err := json.Unmarshal(row.Answers, &answers); err != nil {
		log.Warn("unreadable attempt answers", "attempt_id", row.ID, "error", err)
		return summary
	}
	for _, a := range answers {
		if !a.Correct {
			summary.Missed = append(summary.Missed, a.Question)
		}
	}
	return summary
}
