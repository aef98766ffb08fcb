// Package scheduler implements SM-2 review scheduling with a short
// learning phase for lapsed cards.
//
// Every function in this package is pure: states go in, new states come out,
// and the review instant is always supplied by the caller.
package scheduler

import (
	"math"
	"time"
)

const (
	// DefaultEasiness is the easiness factor of a card that has never been reviewed.
	DefaultEasiness = 2.5
	// MinEasiness is the floor the easiness factor is clamped to after every success.
	MinEasiness = 1.3

	minutesPerDay = 24 * 60
)

// DefaultLearningSteps is the delay table used while a card is in the learning phase.
var DefaultLearningSteps = []time.Duration{10 * time.Minute, 30 * time.Minute}

// Scheduler computes state transitions for a fixed learning-step table.
type Scheduler struct {
	steps []time.Duration
}

var defaultScheduler = New()

// New returns a scheduler using the given learning steps, or
// DefaultLearningSteps when none are given. Non-positive steps are dropped.
func New(steps ...time.Duration) *Scheduler {
	table := make([]time.Duration, 0, len(steps))
	for _, step := range steps {
		if step > 0 {
			table = append(table, step)
		}
	}
	if len(table) == 0 {
		table = append(table, DefaultLearningSteps...)
	}
	return &Scheduler{steps: table}
}

// Default returns the scheduler backed by DefaultLearningSteps.
func Default() *Scheduler {
	return defaultScheduler
}

// LearningSteps returns a copy of the step table.
func (s *Scheduler) LearningSteps() []time.Duration {
	out := make([]time.Duration, len(s.steps))
	copy(out, s.steps)
	return out
}

// InitialState returns the state of a card seen for the first time at now.
func InitialState(now time.Time) CardState {
	return CardState{
		Repetition:     0,
		Interval:       0,
		EF:             DefaultEasiness,
		LastReviewDate: now,
		Active:         true,
		IsLearning:     false,
		RatingHistory:  []RatingEntry{},
	}
}

// Transition applies one review to state using the default step table.
func Transition(state CardState, quality Quality, at time.Time, stop bool) CardState {
	return defaultScheduler.Transition(state, quality, at, stop)
}

// Transition returns the state that follows a review of quality at the
// instant at. With stop set, quality is ignored and the card leaves the
// schedule without touching its counters or history.
//
// Quality must already be validated by the caller.
func (s *Scheduler) Transition(state CardState, quality Quality, at time.Time, stop bool) CardState {
	next := state.Clone()

	if stop {
		next.LastReviewDate = at
		next.NextReviewDate = nil
		next.Active = false
		return next
	}

	if quality.IsLapse() {
		s.lapse(&next, at)
	} else {
		s.recall(&next, quality, at)
	}

	next.LastReviewDate = at
	next.Active = true
	next.RatingHistory = append(next.RatingHistory, RatingEntry{
		Timestamp: at,
		EF:        next.EF,
		Rating:    quality,
	})
	return next
}

// lapse enters or advances the learning phase. Easiness is left alone.
func (s *Scheduler) lapse(next *CardState, at time.Time) {
	step := 0
	if next.IsLearning && next.LearningStep != nil {
		step = *next.LearningStep
		if step < len(s.steps)-1 {
			step++
		}
	}
	// A table shrunk by configuration must not leave the step out of range.
	if step > len(s.steps)-1 {
		step = len(s.steps) - 1
	}

	delay := s.steps[step]
	due := at.Add(delay)

	next.IsLearning = true
	next.LearningStep = &step
	next.Repetition = 0
	// Whole days, usually 0. Only NextReviewDate is authoritative while learning.
	next.Interval = int(math.Round(delay.Minutes() / minutesPerDay))
	next.NextReviewDate = &due
}

// recall graduates a learning card or grows a graduated card's interval.
func (s *Scheduler) recall(next *CardState, quality Quality, at time.Time) {
	if next.IsLearning {
		next.IsLearning = false
		next.LearningStep = nil
		next.Repetition = 1
		next.Interval = 1
	} else {
		next.Repetition++
		switch next.Repetition {
		case 1:
			next.Interval = 1
		case 2:
			next.Interval = 6
		default:
			next.Interval = int(math.Round(float64(next.Interval) * next.EF))
		}
	}

	next.EF = NextEasiness(next.EF, quality)

	due := at.AddDate(0, 0, next.Interval)
	next.NextReviewDate = &due
}

// NextEasiness applies the SM-2 easiness update for a successful review,
// clamps it to MinEasiness and rounds it to two decimals.
func NextEasiness(ef float64, quality Quality) float64 {
	d := float64(QualityPerfect - quality)
	// Explicit conversions round each product and block FMA fusion.
	inner := 0.08 + float64(d*0.02)
	ef = ef + (0.1 - float64(d*inner))
	ef = math.Max(ef, MinEasiness)
	return RoundEasiness(ef)
}
