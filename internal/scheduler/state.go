package scheduler

import "time"

// RatingEntry is one row of a card's review history.
type RatingEntry struct {
	Timestamp time.Time `json:"timestamp"`
	EF        float64   `json:"ef"`
	Rating    Quality   `json:"rating"`
}

// CardState is the scheduling state of a single reviewable item.
//
// A nil NextReviewDate means the card is not actively scheduled. A nil
// LearningStep means the card is not in the learning phase.
type CardState struct {
	Repetition     int           `json:"repetition"`
	Interval       int           `json:"interval"`
	EF             float64       `json:"ef"`
	LastReviewDate time.Time     `json:"lastReviewDate"`
	NextReviewDate *time.Time    `json:"nextReviewDate,omitempty"`
	Active         bool          `json:"active"`
	IsLearning     bool          `json:"isLearning"`
	LearningStep   *int          `json:"learningStep,omitempty"`
	RatingHistory  []RatingEntry `json:"ratingHistory"`
}

// Phase is a coarse, derived view of where a card sits in the state machine.
type Phase string

const (
	PhaseFresh     Phase = "fresh"
	PhaseLearning  Phase = "learning"
	PhaseGraduated Phase = "graduated"
	PhaseStopped   Phase = "stopped"
)

// Phase derives the card's phase from its fields.
func (c CardState) Phase() Phase {
	switch {
	case !c.Active:
		return PhaseStopped
	case c.IsLearning:
		return PhaseLearning
	case c.Repetition == 0:
		return PhaseFresh
	default:
		return PhaseGraduated
	}
}

// IsDue reports whether the card is active and its review time has passed.
func (c CardState) IsDue(now time.Time) bool {
	return c.Active && c.NextReviewDate != nil && !c.NextReviewDate.After(now)
}

// IsScheduled reports whether the card is active and waiting for a future review.
func (c CardState) IsScheduled(now time.Time) bool {
	return c.Active && c.NextReviewDate != nil && c.NextReviewDate.After(now)
}

// Clone returns a deep copy that shares no memory with c.
func (c CardState) Clone() CardState {
	out := c
	if c.NextReviewDate != nil {
		next := *c.NextReviewDate
		out.NextReviewDate = &next
	}
	if c.LearningStep != nil {
		step := *c.LearningStep
		out.LearningStep = &step
	}
	out.RatingHistory = make([]RatingEntry, len(c.RatingHistory), len(c.RatingHistory)+1)
	copy(out.RatingHistory, c.RatingHistory)
	return out
}
