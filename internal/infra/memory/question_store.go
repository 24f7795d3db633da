package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"eduquiz-service/internal/domain"
)

// QuestionLoader fetches a category's question set from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, categoryID string) ([]domain.Question, error)
}

// QuestionStore caches raw category question sets with a TTL to avoid
// repeated store hits. Only store reads are cached; quiz selections are still
// computed fresh on every request.
type QuestionStore struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionStore(loader QuestionLoader, ttl time.Duration) *QuestionStore {
	return &QuestionStore{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

func (s *QuestionStore) QuestionsByCategory(ctx context.Context, categoryID string) ([]domain.Question, error) {
	now := s.clock()

	s.mu.RLock()
	if entry, ok := s.cache[categoryID]; ok && entry.expiresAt.After(now) {
		s.mu.RUnlock()
		return entry.questions, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do(categoryID, func() (interface{}, error) {
		now := s.clock()
		s.mu.RLock()
		if entry, ok := s.cache[categoryID]; ok && entry.expiresAt.After(now) {
			s.mu.RUnlock()
			return entry.questions, nil
		}
		s.mu.RUnlock()

		questions, err := s.loader.LoadQuestions(ctx, categoryID)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cache[categoryID] = cachedQuestions{
			questions: questions,
			expiresAt: now.Add(s.ttlWithJitter()),
		}
		s.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (s *QuestionStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves question sets from an in-memory map, keyed by
// category. Useful for tests and the no-database demo mode.
type StaticQuestionLoader struct {
	categories map[string][]domain.Question
}

func NewStaticQuestionLoader(categories map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{categories: categories}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, categoryID string) ([]domain.Question, error) {
	// An unknown category is simply empty, mirroring how a relational store
	// returns zero rows rather than an error.
	return l.categories[categoryID], nil
}
