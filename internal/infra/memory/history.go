package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"eduquiz-service/internal/domain"
)

// AnswerHistory is an in-memory append-only attempt log.
type AnswerHistory struct {
	mu       sync.RWMutex
	attempts map[historyKey][]domain.AnswerAttempt
}

type historyKey struct {
	userID     string
	questionID string
}

func NewAnswerHistory() *AnswerHistory {
	return &AnswerHistory{attempts: make(map[historyKey][]domain.AnswerAttempt)}
}

func (h *AnswerHistory) AttemptsForQuestion(_ context.Context, userID, questionID string) ([]domain.AnswerAttempt, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stored := h.attempts[historyKey{userID, questionID}]
	out := make([]domain.AnswerAttempt, len(stored))
	copy(out, stored)
	return out, nil
}

func (h *AnswerHistory) AppendAttempt(_ context.Context, userID, questionID string, correct bool) (domain.AnswerAttempt, error) {
	attempt := domain.AnswerAttempt{
		ID:         uuid.NewString(),
		UserID:     userID,
		QuestionID: questionID,
		Correct:    correct,
		CreatedAt:  time.Now(),
	}
	h.mu.Lock()
	key := historyKey{userID, questionID}
	h.attempts[key] = append(h.attempts[key], attempt)
	h.mu.Unlock()
	return attempt, nil
}
