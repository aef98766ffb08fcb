package scheduler

import (
	"fmt"
	"time"
)

// Outcome is what the presentation layer reports for a card: either a graded
// review or a request to stop scheduling it.
type Outcome interface {
	outcome()
}

// Graded is a completed review with a quality rating.
type Graded struct {
	Quality Quality
}

// Stop removes a card from the schedule.
type Stop struct{}

func (Graded) outcome() {}
func (Stop) outcome()   {}

// Apply dispatches outcome onto Transition. Pointers to Graded and Stop are
// accepted; any other Outcome, including a nil pointer, panics.
func (s *Scheduler) Apply(state CardState, outcome Outcome, at time.Time) CardState {
	switch o := outcome.(type) {
	case Graded:
		return s.Transition(state, o.Quality, at, false)
	case *Graded:
		if o != nil {
			return s.Transition(state, o.Quality, at, false)
		}
	case Stop:
		return s.Transition(state, 0, at, true)
	case *Stop:
		if o != nil {
			return s.Transition(state, 0, at, true)
		}
	}
	panic(fmt.Sprintf("scheduler: unsupported outcome %T", outcome))
}

// Apply dispatches outcome using the default step table.
func Apply(state CardState, outcome Outcome, at time.Time) CardState {
	return defaultScheduler.Apply(state, outcome, at)
}
