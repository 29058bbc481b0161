package domain

import "errors"

var (
	// ErrGameNotFound is returned when no game matches the given id or code.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameOver is returned on writes against a finished or cancelled game.
	ErrGameOver = errors.New("game is over")
	// ErrPlayerNotFound is returned when a player id is unknown to the store.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrCodeTaken is returned when a generated join code already exists.
	ErrCodeTaken = errors.New("join code already in use")
	// ErrDuplicateAnswer is returned when a player already answered the question.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrNotAcceptingAnswers is returned when a submit arrives outside the question phase.
	ErrNotAcceptingAnswers = errors.New("game is not accepting answers")
	// ErrInvalidTransition is returned when an action is not legal from the current status.
	ErrInvalidTransition = errors.New("invalid game state transition")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrInvalidBank indicates a malformed question bank entry.
	ErrInvalidBank = errors.New("invalid question bank")
)
