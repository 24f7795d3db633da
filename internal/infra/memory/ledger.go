package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"eduquiz-service/internal/domain"
)

// PointLedger keeps per-user, per-category point totals in memory. The
// increment happens under the lock, so it has the same create-or-add
// atomicity the Postgres ledger gets from its upsert.
type PointLedger struct {
	mu      sync.RWMutex
	records map[ledgerKey]*domain.PointRecord
}

type ledgerKey struct {
	userID     string
	categoryID string
}

func NewPointLedger() *PointLedger {
	return &PointLedger{records: make(map[ledgerKey]*domain.PointRecord)}
}

func (l *PointLedger) PointRecord(_ context.Context, userID, categoryID string) (*domain.PointRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	record, ok := l.records[ledgerKey{userID, categoryID}]
	if !ok {
		return nil, nil
	}
	out := *record
	return &out, nil
}

func (l *PointLedger) AddPoints(_ context.Context, userID, categoryID string, delta int) (domain.PointRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey{userID, categoryID}
	record, ok := l.records[key]
	if !ok {
		record = &domain.PointRecord{
			ID:         uuid.NewString(),
			UserID:     userID,
			CategoryID: categoryID,
		}
		l.records[key] = record
	}
	record.Points += delta
	record.UpdatedAt = time.Now()
	return *record, nil
}
