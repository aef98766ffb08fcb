package card

import "errors"

var (
	// ErrCardNotFound indicates the card doesn't exist.
	ErrCardNotFound = errors.New("card not found")
	// ErrDuplicateCard indicates a card with the requested ID already exists.
	ErrDuplicateCard = errors.New("card already exists")
	// ErrNoteNotFound indicates the owning note doesn't exist.
	ErrNoteNotFound = errors.New("note not found")
	// ErrInvalidRating indicates a quality outside 0..5.
	ErrInvalidRating = errors.New("invalid rating: quality must be an integer from 0 to 5")
	// ErrMissingCardState indicates the card has never been reviewed.
	ErrMissingCardState = errors.New("card has no scheduling state")
	// ErrConflict indicates the card kept changing under concurrent writers.
	ErrConflict = errors.New("card modified concurrently")
	// ErrReviewOutOfOrder indicates a review or stop dated before the card's
	// last review.
	ErrReviewOutOfOrder = errors.New("review is earlier than the card's last review")
	// ErrInvalidInput indicates invalid card input.
	ErrInvalidInput = errors.New("invalid card input")
)
