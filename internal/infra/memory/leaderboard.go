package memory

import (
	"context"
	"sort"
	"sync"

	"eduquiz-service/internal/domain"
)

// Leaderboard is the in-memory scoreboard used when Redis is not configured.
type Leaderboard struct {
	mu     sync.RWMutex
	scores map[string]map[string]int
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{scores: make(map[string]map[string]int)}
}

func (l *Leaderboard) AddScore(_ context.Context, categoryID, userID string, delta int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	board, ok := l.scores[categoryID]
	if !ok {
		board = make(map[string]int)
		l.scores[categoryID] = board
	}
	board[userID] += delta
	return nil
}

func (l *Leaderboard) Top(_ context.Context, categoryID string, limit int) ([]domain.LeaderboardEntry, error) {
	l.mu.RLock()
	board := l.scores[categoryID]
	entries := make([]domain.LeaderboardEntry, 0, len(board))
	for userID, points := range board {
		entries = append(entries, domain.LeaderboardEntry{UserID: userID, Points: points})
	}
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
