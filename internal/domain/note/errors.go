package note

import "errors"

var (
	// ErrNoteNotFound indicates the note doesn't exist.
	ErrNoteNotFound = errors.New("note not found")
	// ErrDuplicatePath indicates another note already uses the path.
	ErrDuplicatePath = errors.New("note path already exists")
	// ErrInvalidInput indicates invalid note input.
	ErrInvalidInput = errors.New("invalid note input")
)
