// Package repository holds the sentinel errors persistence implementations
// return and domain services translate.
package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic version check fails
	ErrConflict = errors.New("conflict: entity was modified concurrently")

	// ErrDuplicate is returned when a unique key is already taken
	ErrDuplicate = errors.New("duplicate key")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrInvalidInput is returned when a write would break a stored invariant
	ErrInvalidInput = errors.New("invalid input")
)
