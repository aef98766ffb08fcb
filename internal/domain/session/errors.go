package session

import "errors"

var (
	// ErrSessionNotFound indicates the session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed indicates the session is closed or has no cards left.
	ErrSessionClosed = errors.New("session closed")
	// ErrNotCurrentCard indicates an answer named a card other than the current one.
	ErrNotCurrentCard = errors.New("card is not the current review")
	// ErrSessionConflict indicates another writer advanced the session first.
	ErrSessionConflict = errors.New("session modified concurrently")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid session input")
)
