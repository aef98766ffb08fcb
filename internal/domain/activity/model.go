package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeCardRegistered    ActivityType = "card_registered"
	TypeCardDeleted       ActivityType = "card_deleted"
	TypeReviewSubmitted   ActivityType = "review_submitted"
	TypeSchedulingStopped ActivityType = "scheduling_stopped"
	TypeSessionStarted    ActivityType = "session_started"
	TypeSessionClosed     ActivityType = "session_closed"
	TypeNoteCreated       ActivityType = "note_created"
	TypeNoteDeleted       ActivityType = "note_deleted"
	TypeCardsImported     ActivityType = "cards_imported"
)

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	switch t {
	case TypeCardRegistered, TypeCardDeleted, TypeReviewSubmitted, TypeSchedulingStopped,
		TypeSessionStarted, TypeSessionClosed, TypeNoteCreated, TypeNoteDeleted, TypeCardsImported:
		return true
	}
	return false
}

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	TenantID     string       `json:"tenant_id"`
	NoteID       *string      `json:"note_id,omitempty"`
	CardID       *string      `json:"card_id,omitempty"`
	SessionID    *string      `json:"session_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
