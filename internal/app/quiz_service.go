package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"eduquiz-service/internal/domain"
)

const (
	// maxQuizQuestions bounds the number of questions in one selection.
	maxQuizQuestions = 10
	// awardMinAnswers and awardMinCorrect gate point awards: a submission of at
	// least 10 answers with at least 8 correct earns points equal to the number
	// of correct answers. The denominator is the raw submitted count, not the
	// graded count.
	awardMinAnswers = 10
	awardMinCorrect = 8
)

// QuestionStore loads category question sets (with answers) from a backing store.
type QuestionStore interface {
	QuestionsByCategory(ctx context.Context, categoryID string) ([]domain.Question, error)
}

// AnswerHistory is the append-only log of per-user answer attempts.
type AnswerHistory interface {
	AttemptsForQuestion(ctx context.Context, userID, questionID string) ([]domain.AnswerAttempt, error)
	AppendAttempt(ctx context.Context, userID, questionID string, correct bool) (domain.AnswerAttempt, error)
}

// PointLedger keeps per-user, per-category point totals. AddPoints is an
// atomic create-or-increment so concurrent awards cannot lose updates.
type PointLedger interface {
	PointRecord(ctx context.Context, userID, categoryID string) (*domain.PointRecord, error)
	AddPoints(ctx context.Context, userID, categoryID string, delta int) (domain.PointRecord, error)
}

// LeaderboardStore tracks category scoreboards (Redis sorted set or in-memory).
type LeaderboardStore interface {
	AddScore(ctx context.Context, categoryID, userID string, delta int) error
	Top(ctx context.Context, categoryID string, limit int) ([]domain.LeaderboardEntry, error)
}

// QuizService contains the quiz assembly and grading use cases.
type QuizService struct {
	questions QuestionStore
	history   AnswerHistory
	ledger    PointLedger
	boards    LeaderboardStore
	hub       *LeaderboardHub
	boardSize int
	log       *logrus.Logger
}

// Option configures optional service collaborators.
type Option func(*QuizService)

// WithLeaderboard enables the category scoreboard and its live broadcast.
func WithLeaderboard(store LeaderboardStore, hub *LeaderboardHub, size int) Option {
	return func(s *QuizService) {
		s.boards = store
		s.hub = hub
		if size > 0 {
			s.boardSize = size
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *QuizService) { s.log = log }
}

func NewQuizService(questions QuestionStore, history AnswerHistory, ledger PointLedger, opts ...Option) *QuizService {
	s := &QuizService{
		questions: questions,
		history:   history,
		ledger:    ledger,
		boardSize: 10,
		log:       logrus.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// history buckets, in selection priority order.
type bucket int

const (
	bucketUnanswered bucket = iota
	bucketMissed
	bucketMastered
)

func classifyAttempts(attempts []domain.AnswerAttempt) bucket {
	if len(attempts) == 0 {
		return bucketUnanswered
	}
	for _, a := range attempts {
		// One wrong attempt keeps the question in the retry bucket even if a
		// later attempt got it right.
		if !a.Correct {
			return bucketMissed
		}
	}
	return bucketMastered
}

// StartQuiz assembles up to 10 eligible questions for the user, prioritized by
// answer history: never-answered first, then previously missed, then mastered.
// Within each bucket the store's fetch order is preserved. Returns
// domain.ErrQuizNotAvailable when the category has no eligible questions.
func (s *QuizService) StartQuiz(ctx context.Context, userID, categoryID string) (domain.QuizSelection, error) {
	questions, err := s.questions.QuestionsByCategory(ctx, categoryID)
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": userID, "category_id": categoryID}).
			WithError(err).Error("loading questions failed")
		return domain.QuizSelection{}, fmt.Errorf("load questions: %w", err)
	}

	var unanswered, missed, mastered []domain.Question
	for _, q := range questions {
		if !q.Eligible() {
			continue
		}
		attempts, err := s.history.AttemptsForQuestion(ctx, userID, q.ID)
		if err != nil {
			s.log.WithFields(logrus.Fields{"user_id": userID, "question_id": q.ID}).
				WithError(err).Error("loading answer history failed")
			return domain.QuizSelection{}, fmt.Errorf("load answer history: %w", err)
		}
		switch classifyAttempts(attempts) {
		case bucketUnanswered:
			unanswered = append(unanswered, q)
		case bucketMissed:
			missed = append(missed, q)
		case bucketMastered:
			mastered = append(mastered, q)
		}
	}

	selected := make([]domain.Question, 0, maxQuizQuestions)
	for _, b := range [][]domain.Question{unanswered, missed, mastered} {
		remaining := maxQuizQuestions - len(selected)
		if remaining == 0 {
			break
		}
		if len(b) > remaining {
			b = b[:remaining]
		}
		selected = append(selected, b...)
	}
	if len(selected) == 0 {
		return domain.QuizSelection{}, domain.ErrQuizNotAvailable
	}

	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"category_id": categoryID,
		"questions":   len(selected),
	}).Debug("quiz assembled")

	return domain.QuizSelection{
		Title:      quizTitle(categoryID),
		CategoryID: categoryID,
		Questions:  selected,
	}, nil
}

// SubmitQuiz grades a submitted answer set. Every graded pair appends an
// AnswerAttempt regardless of the point outcome. Pairs referencing unknown
// questions, questions without answers, or questions without a valid answer
// are skipped silently and produce no result. When the submission clears the
// award threshold the user earns points equal to the correct count.
func (s *QuizService) SubmitQuiz(ctx context.Context, userID, categoryID string, answers []domain.SubmittedAnswer) ([]domain.SubmissionResult, error) {
	questions, err := s.questions.QuestionsByCategory(ctx, categoryID)
	if err != nil {
		s.log.WithFields(logrus.Fields{"user_id": userID, "category_id": categoryID}).
			WithError(err).Error("loading questions failed")
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrQuizNotAvailable
	}

	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	results := make([]domain.SubmissionResult, 0, len(answers))
	correctCount := 0
	for _, sub := range answers {
		question, ok := byID[sub.QuestionID]
		if !ok || len(question.Answers) == 0 {
			continue
		}
		correctAnswer, ok := question.CorrectAnswer()
		if !ok {
			continue
		}
		verdict := sub.SelectedAnswerID == correctAnswer.ID

		// Appended before the threshold check on purpose: history records every
		// graded pair even when the submission earns nothing.
		if _, err := s.history.AppendAttempt(ctx, userID, sub.QuestionID, verdict); err != nil {
			s.log.WithFields(logrus.Fields{"user_id": userID, "question_id": sub.QuestionID}).
				WithError(err).Error("recording answer attempt failed")
			return nil, fmt.Errorf("record attempt: %w", err)
		}
		if verdict {
			correctCount++
		}
		results = append(results, domain.SubmissionResult{
			QuestionID:       question.ID,
			Question:         question,
			SelectedAnswerID: sub.SelectedAnswerID,
			Correct:          verdict,
			Explanation:      correctAnswer.Explanation,
			CorrectAnswer:    correctAnswer,
		})
	}

	// Threshold uses the raw submitted count, so dropped pairs still count
	// against the denominator.
	awarded := false
	if len(answers) >= awardMinAnswers && correctCount >= awardMinCorrect {
		record, err := s.ledger.AddPoints(ctx, userID, categoryID, correctCount)
		if err != nil {
			s.log.WithFields(logrus.Fields{"user_id": userID, "category_id": categoryID}).
				WithError(err).Error("awarding points failed")
			return nil, fmt.Errorf("award points: %w", err)
		}
		awarded = true
		s.log.WithFields(logrus.Fields{
			"user_id":     userID,
			"category_id": categoryID,
			"awarded":     correctCount,
			"total":       record.Points,
		}).Info("points awarded")
		s.publishScore(ctx, categoryID, userID, correctCount)
	}
	for i := range results {
		results[i].PointsAwarded = awarded
	}
	return results, nil
}

// Points returns the user's point record for a category, or
// domain.ErrPointsNotFound when none exists yet.
func (s *QuizService) Points(ctx context.Context, userID, categoryID string) (domain.PointRecord, error) {
	record, err := s.ledger.PointRecord(ctx, userID, categoryID)
	if err != nil {
		return domain.PointRecord{}, fmt.Errorf("load point record: %w", err)
	}
	if record == nil {
		return domain.PointRecord{}, domain.ErrPointsNotFound
	}
	return *record, nil
}

// Leaderboard returns the current top entries for a category.
func (s *QuizService) Leaderboard(ctx context.Context, categoryID string) (domain.Leaderboard, error) {
	if s.boards == nil {
		return domain.Leaderboard{CategoryID: categoryID, UpdatedAt: time.Now()}, nil
	}
	entries, err := s.boards.Top(ctx, categoryID, s.boardSize)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load leaderboard: %w", err)
	}
	return domain.Leaderboard{CategoryID: categoryID, Entries: entries, UpdatedAt: time.Now()}, nil
}

// publishScore updates the scoreboard and broadcasts the new top entries.
// Best-effort: a scoreboard failure never fails a graded submission.
func (s *QuizService) publishScore(ctx context.Context, categoryID, userID string, delta int) {
	if s.boards == nil {
		return
	}
	if err := s.boards.AddScore(ctx, categoryID, userID, delta); err != nil {
		s.log.WithField("category_id", categoryID).WithError(err).Warn("leaderboard update failed")
		return
	}
	if s.hub == nil {
		return
	}
	entries, err := s.boards.Top(ctx, categoryID, s.boardSize)
	if err != nil {
		s.log.WithField("category_id", categoryID).WithError(err).Warn("leaderboard snapshot failed")
		return
	}
	s.hub.Publish(domain.Leaderboard{CategoryID: categoryID, Entries: entries, UpdatedAt: time.Now()})
}

func quizTitle(categoryID string) string {
	return fmt.Sprintf("Quiz: %s", categoryID)
}
