package domain

import "errors"

var (
	// ErrQuizNotAvailable is returned when a category has no eligible content.
	// It deliberately stays distinct from collaborator failures so callers can
	// tell "nothing to serve" apart from "the store broke".
	ErrQuizNotAvailable = errors.New("no quiz available for category")
	// ErrPointsNotFound is returned when a user has no point record in a category.
	ErrPointsNotFound = errors.New("no point record for user and category")
)
