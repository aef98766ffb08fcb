package scheduler

import (
	"errors"
	"fmt"
)

// ErrInvalidState indicates a loaded CardState breaks a scheduling invariant.
var ErrInvalidState = errors.New("invalid card state")

// Validate checks the invariants every reachable state satisfies. It is meant
// for states that arrive from outside the scheduler, such as imports.
func (s *Scheduler) Validate(state CardState) error {
	if state.EF < MinEasiness {
		return fmt.Errorf("%w: ef %v below %v", ErrInvalidState, state.EF, MinEasiness)
	}
	if state.Repetition < 0 {
		return fmt.Errorf("%w: negative repetition %d", ErrInvalidState, state.Repetition)
	}
	if state.Interval < 0 {
		return fmt.Errorf("%w: negative interval %d", ErrInvalidState, state.Interval)
	}
	if state.IsLearning != (state.LearningStep != nil) {
		return fmt.Errorf("%w: learning flag and learning step disagree", ErrInvalidState)
	}
	// A step past the end of the table is accepted: it predates a shorter
	// configuration and the next lapse clamps it.
	if state.LearningStep != nil && *state.LearningStep < 0 {
		return fmt.Errorf("%w: negative learning step %d", ErrInvalidState, *state.LearningStep)
	}
	if !state.Active && state.NextReviewDate != nil {
		return fmt.Errorf("%w: inactive card has a next review date", ErrInvalidState)
	}
	for i, entry := range state.RatingHistory {
		if !entry.Rating.Valid() {
			return fmt.Errorf("%w: history entry %d has rating %d", ErrInvalidState, i, entry.Rating)
		}
		if i > 0 && entry.Timestamp.Before(state.RatingHistory[i-1].Timestamp) {
			return fmt.Errorf("%w: history entry %d is out of order", ErrInvalidState, i)
		}
	}
	return nil
}

// Validate checks state against the default step table.
func Validate(state CardState) error {
	return defaultScheduler.Validate(state)
}
