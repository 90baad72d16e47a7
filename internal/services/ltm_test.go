package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/types"
)

func attemptRow(userID uuid.UUID, topic, label string, passed bool, missed []string) *types.QuizAttempt {
	answers := []types.QuizAnswer{}
	for _, q := range missed {
		answers = append(answers, types.QuizAnswer{Question: q, SelectedOption: 1, CorrectOption: 0, Correct: false})
	}
	answers = append(answers, types.QuizAnswer{Question: "ok", SelectedOption: 0, CorrectOption: 0, Correct: true})
	raw, _ := json.Marshal(answers)
	return &types.QuizAttempt{
		ID:        uuid.New(),
		UserID:    userID,
		Topic:     topic,
		NodeID:    "n",
		NodeLabel: label,
		Answers:   datatypes.JSON(raw),
		Score:     0.5,
		Passed:    passed,
		CreatedAt: time.Now(),
	}
}

func TestFetchRecentAttemptsReturnsAllWhenFewerThanLimit(t *testing.T) {
	userID := uuid.New()
	repo := &fakeAttemptRepo{}
	for i := 0; i < 3; i++ {
		repo.rows = append(repo.rows, attemptRow(userID, "Calculus", "Limits", false, []string{"what is a limit?"}))
	}
	svc := NewLTMService(repo, logger.NewNop())

	got, err := svc.FetchRecentAttempts(context.Background(), userID, "Calculus", 10)
	if err != nil {
		t.Fatalf("FetchRecentAttempts: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all 3 attempts, got %d", len(got))
	}
	if got[0].NodeLabel != "Limits" || got[0].Passed {
		t.Fatalf("unexpected summary: %+v", got[0])
	}
	if len(got[0].Missed) != 1 || got[0].Missed[0] != "what is a limit?" {
		t.Fatalf("missed questions not extracted: %+v", got[0])
	}
}

func TestFetchRecentAttemptsHonorsLimitAndTopic(t *testing.T) {
	userID := uuid.New()
	repo := &fakeAttemptRepo{}
	for i := 0; i < 15; i++ {
		repo.rows = append(repo.rows, attemptRow(userID, "Calculus", "Limits", true, nil))
	}
	repo.rows = append(repo.rows, attemptRow(userID, "Chemistry", "Bonds", false, nil))
	svc := NewLTMService(repo, logger.NewNop())

	got, err := svc.FetchRecentAttempts(context.Background(), userID, "Calculus", 10)
	if err != nil {
		t.Fatalf("FetchRecentAttempts: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected limit of 10, got %d", len(got))
	}
	for _, s := range got {
		if s.NodeLabel != "Limits" {
			t.Fatalf("foreign topic leaked into history: %+v", s)
		}
	}
}
