package domain

import "time"

// Answer is one selectable option on a question. Valid marks the correct
// answer; when several are flagged, the first one wins for grading.
type Answer struct {
	ID          string `json:"id"`
	QuestionID  string `json:"questionId"`
	Text        string `json:"text"`
	Valid       bool   `json:"isValid"`
	Explanation string `json:"explanation,omitempty"`
}

// Question is a category-scoped multiple-choice question with its answer set.
type Question struct {
	ID         string   `json:"id"`
	CategoryID string   `json:"categoryId"`
	Title      string   `json:"title"`
	Answers    []Answer `json:"answers"`
}

// Eligible reports whether the question can be served in a quiz: it needs at
// least two answers and one of them marked valid.
func (q Question) Eligible() bool {
	if len(q.Answers) < 2 {
		return false
	}
	for _, a := range q.Answers {
		if a.Valid {
			return true
		}
	}
	return false
}

// CorrectAnswer returns the first answer flagged valid, if any.
func (q Question) CorrectAnswer() (Answer, bool) {
	for _, a := range q.Answers {
		if a.Valid {
			return a, true
		}
	}
	return Answer{}, false
}

// AnswerAttempt is one recorded response of a user to a question. The history
// is append-only; attempts are never mutated or deduplicated.
type AnswerAttempt struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	QuestionID string    `json:"questionId"`
	Correct    bool      `json:"isCorrect"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PointRecord accumulates a user's points within one category. There is one
// logical record per (user, category) pair and its total only ever grows.
type PointRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	CategoryID string    `json:"categoryId"`
	Points     int       `json:"points"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SubmittedAnswer is one (question, chosen answer) pair of a quiz submission.
type SubmittedAnswer struct {
	QuestionID       string `json:"questionId"`
	SelectedAnswerID string `json:"selectedAnswerId"`
}

// QuizSelection is the ordered set of questions served to start a quiz. It is
// derived fresh on every request and never persisted.
type QuizSelection struct {
	Title      string     `json:"title"`
	CategoryID string     `json:"categoryId"`
	Questions  []Question `json:"questions"`
}

// SubmissionResult is the grading outcome for a single submitted answer.
// PointsAwarded reports whether the submission as a whole earned points.
type SubmissionResult struct {
	QuestionID       string   `json:"questionId"`
	Question         Question `json:"question"`
	SelectedAnswerID string   `json:"selectedAnswerId"`
	Correct          bool     `json:"isCorrect"`
	Explanation      string   `json:"explanation"`
	CorrectAnswer    Answer   `json:"correctAnswer"`
	PointsAwarded    bool     `json:"pointsAwarded"`
}

// LeaderboardEntry is one row of a category scoreboard.
type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Points int    `json:"points"`
}

// Leaderboard captures the ordered scoreboard for a category.
type Leaderboard struct {
	CategoryID string             `json:"categoryId"`
	Entries    []LeaderboardEntry `json:"entries"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}
