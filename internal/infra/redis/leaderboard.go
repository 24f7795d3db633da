package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"eduquiz-service/internal/domain"
)

// Leaderboard keeps one sorted set per category:
// ZINCRBY leaderboard:{categoryID} {delta} {userID}
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) AddScore(ctx context.Context, categoryID, userID string, delta int) error {
	if err := l.client.ZIncrBy(ctx, l.key(categoryID), float64(delta), userID).Err(); err != nil {
		return fmt.Errorf("leaderboard incr: %w", err)
	}
	return nil
}

func (l *Leaderboard) Top(ctx context.Context, categoryID string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	members, err := l.client.ZRevRangeWithScores(ctx, l.key(categoryID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard range: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		userID, ok := m.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID: userID,
			Points: int(m.Score),
		})
	}
	return entries, nil
}

func (l *Leaderboard) key(categoryID string) string {
	return "leaderboard:" + categoryID
}
