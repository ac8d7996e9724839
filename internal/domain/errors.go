package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session does not exist or has expired.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNotFound is returned by storage when a key is absent in a session.
	ErrNotFound = errors.New("key not found")
	// ErrAreaOutOfRange indicates an area ID outside the reference data.
	ErrAreaOutOfRange = errors.New("area out of range")
	// ErrNoValidAnswers indicates an answer set that is empty after normalization.
	ErrNoValidAnswers = errors.New("no valid answers to save")
	// ErrQuizNotTaken is returned when results are requested before any answer was saved.
	ErrQuizNotTaken = errors.New("quiz not taken yet")
	// ErrRestartQuiz tells the caller to send the user back to the start of the quiz.
	ErrRestartQuiz = errors.New("results unavailable, restart quiz")
	// ErrReferenceNotFound indicates the reference documents could not be loaded.
	ErrReferenceNotFound = errors.New("reference data not found")
	// ErrInvalidReference indicates reference documents that fail validation.
	ErrInvalidReference = errors.New("invalid reference data")
)
