package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"eduquiz-service/internal/domain"
)

// Store implements the question, history and ledger collaborators on one
// pgxpool connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// QuestionsByCategory loads a category's questions with their answer sets in
// stable position order. Questions without answers are still returned; the
// eligibility filter belongs to the service layer.
func (s *Store) QuestionsByCategory(ctx context.Context, categoryID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT q.id, q.category_id, q.title,
		       a.id, a.text, a.is_valid, a.explanation
		FROM questions q
		LEFT JOIN answers a ON a.question_id = q.id
		WHERE q.category_id = $1
		ORDER BY q.position, q.id, a.position, a.id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	index := make(map[string]int)
	for rows.Next() {
		var (
			q           domain.Question
			answerID    *string
			text        *string
			valid       *bool
			explanation *string
		)
		if err := rows.Scan(&q.ID, &q.CategoryID, &q.Title, &answerID, &text, &valid, &explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		i, ok := index[q.ID]
		if !ok {
			i = len(questions)
			index[q.ID] = i
			questions = append(questions, q)
		}
		if answerID != nil {
			questions[i].Answers = append(questions[i].Answers, domain.Answer{
				ID:          *answerID,
				QuestionID:  q.ID,
				Text:        deref(text),
				Valid:       valid != nil && *valid,
				Explanation: deref(explanation),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return questions, nil
}

func (s *Store) AttemptsForQuestion(ctx context.Context, userID, questionID string) ([]domain.AnswerAttempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, question_id, is_correct, created_at
		FROM answer_attempts
		WHERE user_id = $1 AND question_id = $2
		ORDER BY created_at, id`, userID, questionID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.AnswerAttempt
	for rows.Next() {
		var a domain.AnswerAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.Correct, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read attempts: %w", err)
	}
	return attempts, nil
}

func (s *Store) AppendAttempt(ctx context.Context, userID, questionID string, correct bool) (domain.AnswerAttempt, error) {
	attempt := domain.AnswerAttempt{
		ID:         uuid.NewString(),
		UserID:     userID,
		QuestionID: questionID,
		Correct:    correct,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO answer_attempts (id, user_id, question_id, is_correct)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		attempt.ID, userID, questionID, correct).Scan(&attempt.CreatedAt)
	if err != nil {
		return domain.AnswerAttempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return attempt, nil
}

func (s *Store) PointRecord(ctx context.Context, userID, categoryID string) (*domain.PointRecord, error) {
	var record domain.PointRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, category_id, points, updated_at
		FROM point_records
		WHERE user_id = $1 AND category_id = $2`, userID, categoryID).
		Scan(&record.ID, &record.UserID, &record.CategoryID, &record.Points, &record.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query point record: %w", err)
	}
	return &record, nil
}

// AddPoints increments the (user, category) total in a single upsert, creating
// the row on first award. The add happens inside the statement, so concurrent
// awards cannot lose points.
func (s *Store) AddPoints(ctx context.Context, userID, categoryID string, delta int) (domain.PointRecord, error) {
	record := domain.PointRecord{UserID: userID, CategoryID: categoryID}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO point_records (id, user_id, category_id, points, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, category_id)
		DO UPDATE SET points = point_records.points + EXCLUDED.points, updated_at = now()
		RETURNING id, points, updated_at`,
		uuid.NewString(), userID, categoryID, delta).
		Scan(&record.ID, &record.Points, &record.UpdatedAt)
	if err != nil {
		return domain.PointRecord{}, fmt.Errorf("upsert point record: %w", err)
	}
	return record, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
