package app

import (
	"sync"

	"eduquiz-service/internal/domain"
)

// LeaderboardHub fans leaderboard snapshots out to in-process subscribers,
// one subscriber set per category. Writers never block: a slow subscriber has
// its stale snapshot dropped in favor of the newest one.
type LeaderboardHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardHub() *LeaderboardHub {
	return &LeaderboardHub{
		subscribers: make(map[string]map[chan domain.Leaderboard]struct{}),
	}
}

// Subscribe registers for updates on one category. The caller must invoke the
// returned cancel function to avoid leaks.
func (h *LeaderboardHub) Subscribe(categoryID string) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	subs, ok := h.subscribers[categoryID]
	if !ok {
		subs = make(map[chan domain.Leaderboard]struct{})
		h.subscribers[categoryID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[categoryID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.subscribers, categoryID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of its category.
func (h *LeaderboardHub) Publish(board domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[board.CategoryID] {
		select {
		case ch <- board:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- board
		}
	}
}
