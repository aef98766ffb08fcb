package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/domain/session"
	"github.com/rpggio/spacer/internal/scheduler"
)

// APIError is the coded error shape shared by MCP tools and the REST API.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
	Status       int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// JSON returns the wire form of e.
func (e *APIError) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return e.Error()
	}
	return string(data)
}

type errorMapping struct {
	target error
	api    APIError
}

// Order matters: card.ErrNoteNotFound and note.ErrNoteNotFound share a code,
// and the specific rating errors come before the generic input errors.
var errorTable = []errorMapping{
	{card.ErrInvalidRating, APIError{Code: "INVALID_RATING", Message: "quality must be an integer from 0 to 5", RecoveryHint: "Rate 0-2 for a failed recall, 3-5 for a successful one", Status: http.StatusBadRequest}},
	{scheduler.ErrInvalidQuality, APIError{Code: "INVALID_RATING", Message: "quality must be an integer from 0 to 5", RecoveryHint: "Rate 0-2 for a failed recall, 3-5 for a successful one", Status: http.StatusBadRequest}},
	{card.ErrCardNotFound, APIError{Code: "CARD_NOT_FOUND", Message: "card not found", RecoveryHint: "Check the card ID or register the card first", Status: http.StatusNotFound}},
	{card.ErrMissingCardState, APIError{Code: "MISSING_CARD_STATE", Message: "card has never been reviewed", RecoveryHint: "Submit a review to create its scheduling state", Status: http.StatusNotFound}},
	{card.ErrDuplicateCard, APIError{Code: "DUPLICATE_CARD", Message: "card already exists", RecoveryHint: "Pick another ID or omit it to generate one", Status: http.StatusConflict}},
	{card.ErrNoteNotFound, APIError{Code: "NOTE_NOT_FOUND", Message: "note not found", RecoveryHint: "Create the note or pass note_path", Status: http.StatusNotFound}},
	{note.ErrNoteNotFound, APIError{Code: "NOTE_NOT_FOUND", Message: "note not found", RecoveryHint: "List notes to find its ID", Status: http.StatusNotFound}},
	{note.ErrDuplicatePath, APIError{Code: "DUPLICATE_PATH", Message: "a note with this path exists", RecoveryHint: "Reuse the existing note", Status: http.StatusConflict}},
	{card.ErrReviewOutOfOrder, APIError{Code: "REVIEW_OUT_OF_ORDER", Message: "review is earlier than the card's last review", RecoveryHint: "Omit the timestamp or pass one at or after last_review_date", Status: http.StatusConflict}},
	{card.ErrConflict, APIError{Code: "CONFLICT", Message: "card modified concurrently", RecoveryHint: "Retry the review", Status: http.StatusConflict}},
	{session.ErrSessionNotFound, APIError{Code: "SESSION_NOT_FOUND", Message: "review session not found", RecoveryHint: "Start a new review session", Status: http.StatusNotFound}},
	{session.ErrSessionClosed, APIError{Code: "SESSION_CLOSED", Message: "review session is closed", RecoveryHint: "Start a new review session", Status: http.StatusConflict}},
	{session.ErrSessionConflict, APIError{Code: "CONFLICT", Message: "review session modified concurrently", RecoveryHint: "Call current_review and answer again", Status: http.StatusConflict}},
	{session.ErrNotCurrentCard, APIError{Code: "NOT_CURRENT_CARD", Message: "card is not the current review", RecoveryHint: "Call current_review and answer that card", Status: http.StatusConflict}},
	{card.ErrInvalidInput, APIError{Code: "INVALID_INPUT", Message: "invalid card input", Status: http.StatusBadRequest}},
	{note.ErrInvalidInput, APIError{Code: "INVALID_INPUT", Message: "invalid note input", Status: http.StatusBadRequest}},
	{session.ErrInvalidInput, APIError{Code: "INVALID_INPUT", Message: "invalid session input", Status: http.StatusBadRequest}},
	{activity.ErrInvalidInput, APIError{Code: "INVALID_INPUT", Message: "invalid activity query", Status: http.StatusBadRequest}},
}

// MapError maps domain errors to API error codes. It returns nil for errors
// with no mapping.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			mapped := m.api
			if m.api.Code == "INVALID_INPUT" {
				mapped.Message = err.Error()
			}
			return &mapped
		}
	}
	return nil
}

// InternalError is the APIError for anything MapError does not know.
func InternalError(err error) *APIError {
	return &APIError{Code: "INTERNAL", Message: err.Error(), Status: http.StatusInternalServerError}
}

// toolError is returned from tool handlers; the SDK turns it into an error
// result whose text is the JSON APIError.
type toolError struct {
	api *APIError
}

func (e *toolError) Error() string { return e.api.JSON() }

func (e *toolError) Unwrap() error { return e.api }

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return &toolError{api: apiErr}
	}
	return &toolError{api: InternalError(err)}
}

func invalidInput(format string, args ...any) error {
	return &toolError{api: &APIError{
		Code:    "INVALID_INPUT",
		Message: fmt.Sprintf(format, args...),
		Status:  http.StatusBadRequest,
	}}
}
