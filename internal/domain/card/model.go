package card

import (
	"time"

	"github.com/rpggio/spacer/internal/scheduler"
)

// Kind distinguishes how a card is presented.
type Kind string

const (
	// KindBasic is a prompt/answer flashcard from a markdown note.
	KindBasic Kind = "basic"
	// KindOcclusion is a masked region of an image.
	KindOcclusion Kind = "occlusion"
)

// Valid reports whether k is a known card kind.
func (k Kind) Valid() bool {
	return k == KindBasic || k == KindOcclusion
}

// Card is a reviewable unit and its scheduling state. State is nil until the
// first review or stop.
type Card struct {
	ID         string               `json:"id"`
	TenantID   string               `json:"tenant_id"`
	NoteID     string               `json:"note_id"`
	Kind       Kind                 `json:"kind"`
	Prompt     string               `json:"prompt"`
	Answer     string               `json:"answer,omitempty"`
	Tags       []string             `json:"tags"`
	State      *scheduler.CardState `json:"state,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	ModifiedAt time.Time            `json:"modified_at"`
	Version    int64                `json:"version"`
}

// Phase reports where the card sits in the scheduling state machine.
func (c *Card) Phase() scheduler.Phase {
	if c.State == nil {
		return scheduler.PhaseFresh
	}
	return c.State.Phase()
}

// Ref returns the listing view of c.
func (c *Card) Ref() CardRef {
	ref := CardRef{
		ID:     c.ID,
		NoteID: c.NoteID,
		Kind:   c.Kind,
		Prompt: c.Prompt,
		Tags:   c.Tags,
		Phase:  c.Phase(),
		Active: true,
		EF:     scheduler.DefaultEasiness,
	}
	if c.State != nil {
		ref.NextReviewDate = c.State.NextReviewDate
		ref.Active = c.State.Active
		ref.Repetition = c.State.Repetition
		ref.Interval = c.State.Interval
		ref.EF = c.State.EF
	}
	return ref
}

// CardRef is a lightweight reference to a card
type CardRef struct {
	ID             string          `json:"id"`
	NoteID         string          `json:"note_id"`
	Kind           Kind            `json:"kind"`
	Prompt         string          `json:"prompt"`
	Tags           []string        `json:"tags"`
	Phase          scheduler.Phase `json:"phase"`
	NextReviewDate *time.Time      `json:"next_review_date,omitempty"`
	Active         bool            `json:"active"`
	Repetition     int             `json:"repetition"`
	Interval       int             `json:"interval"`
	EF             float64         `json:"ef"`
}

// ForecastDay counts the cards due on one UTC calendar day.
type ForecastDay struct {
	Date string `json:"date"`
	Due  int    `json:"due"`
}
