package domain

import "errors"

var (
	// ErrGameNotFound is returned when no running game has the requested join code.
	ErrGameNotFound = errors.New("game not found")
	// ErrCodeTaken is returned when a requested join code is already in use.
	ErrCodeTaken = errors.New("join code already in use")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoQuestions marks a game that has no quiz data to play.
	ErrNoQuestions = errors.New("game has no questions")
	// ErrHostClosed is returned by host operations after the host loop has stopped.
	ErrHostClosed = errors.New("host closed")
	// ErrNotConnected is returned by player actions while the connection to the host is down.
	ErrNotConnected = errors.New("not connected to host")
	// ErrMissingCredential is a startup failure for sources that need an API key.
	ErrMissingCredential = errors.New("missing credential")
)
