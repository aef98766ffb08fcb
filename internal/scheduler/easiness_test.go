package scheduler_test

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/rpggio/spacer/internal/scheduler"
	"github.com/stretchr/testify/require"
)

func TestRoundEasiness(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{2.5, 2.5},
		{2.6000000000000001, 2.6},
		{2.36, 2.36},
		{2.125, 2.13}, // exact tie rounds away from zero
		{2.675, 2.67}, // stored just below the tie
		{1.3, 1.3},
		{1.2999999, 1.3},
		{2.004999, 2.0},
		{-1.125, -1.13},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, scheduler.RoundEasiness(tc.in), "RoundEasiness(%v)", tc.in)
	}
}

func TestNextEasiness(t *testing.T) {
	cases := []struct {
		quality scheduler.Quality
		want    float64
	}{
		{scheduler.QualityPerfect, 2.6},
		{scheduler.QualityGood, 2.5},
		{scheduler.QualityHard, 2.36},
		{scheduler.QualityWrongFamiliar, 2.18},
		{scheduler.QualityWrong, 1.96},
		{scheduler.QualityBlackout, 1.7},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, scheduler.NextEasiness(2.5, tc.quality), "quality %d", tc.quality)
	}
	require.Equal(t, scheduler.MinEasiness, scheduler.NextEasiness(1.3, scheduler.QualityHard))
}

// roundedEasiness evaluates the update with big.Float at float64 precision,
// rounding after every operation exactly as unfused IEEE arithmetic does.
func roundedEasiness(ef float64, quality scheduler.Quality) float64 {
	f := func(v float64) *big.Float { return new(big.Float).SetPrec(53).SetFloat64(v) }
	op := func() *big.Float { return new(big.Float).SetPrec(53) }

	d := f(float64(scheduler.QualityPerfect - quality))
	inner := op().Add(f(0.08), op().Mul(d, f(0.02)))
	delta := op().Sub(f(0.1), op().Mul(d, inner))
	next, _ := op().Add(f(ef), delta).Float64()
	return scheduler.RoundEasiness(math.Max(next, scheduler.MinEasiness))
}

func TestNextEasiness_MatchesUnfusedArithmetic(t *testing.T) {
	for ef := scheduler.MinEasiness; ef < 4; ef += 0.01 {
		for q := scheduler.QualityBlackout; q <= scheduler.QualityPerfect; q++ {
			require.Equal(t, roundedEasiness(ef, q), scheduler.NextEasiness(ef, q), "ef %v quality %d", ef, q)
		}
	}
}

func TestQuality(t *testing.T) {
	for q := scheduler.QualityBlackout; q <= scheduler.QualityPerfect; q++ {
		require.True(t, q.Valid())
		require.Equal(t, q < 3, q.IsLapse())
	}
	require.False(t, scheduler.Quality(-1).Valid())
	require.False(t, scheduler.Quality(6).Valid())
	require.Equal(t, "good", scheduler.QualityGood.String())
	require.Equal(t, "quality(9)", scheduler.Quality(9).String())

	q, err := scheduler.ParseQuality(" 4 ")
	require.NoError(t, err)
	require.Equal(t, scheduler.QualityGood, q)

	_, err = scheduler.ParseQuality("6")
	require.ErrorIs(t, err, scheduler.ErrInvalidQuality)
	_, err = scheduler.ParseQuality("stop")
	require.ErrorIs(t, err, scheduler.ErrInvalidQuality)
}

func TestValidate(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	good := scheduler.Transition(scheduler.InitialState(at), scheduler.QualityWrong, at, false)
	require.NoError(t, scheduler.Validate(good))

	lowEF := good.Clone()
	lowEF.EF = 1.2
	require.ErrorIs(t, scheduler.Validate(lowEF), scheduler.ErrInvalidState)

	orphanStep := good.Clone()
	orphanStep.IsLearning = false
	require.ErrorIs(t, scheduler.Validate(orphanStep), scheduler.ErrInvalidState)

	inactiveDue := good.Clone()
	inactiveDue.Active = false
	require.ErrorIs(t, scheduler.Validate(inactiveDue), scheduler.ErrInvalidState)

	negativeStep := good.Clone()
	step := -1
	negativeStep.LearningStep = &step
	require.ErrorIs(t, scheduler.Validate(negativeStep), scheduler.ErrInvalidState)

	// A step past the table predates a shorter configuration.
	pastTable := good.Clone()
	far := 5
	pastTable.LearningStep = &far
	require.NoError(t, scheduler.Validate(pastTable))

	unordered := scheduler.Transition(good, scheduler.QualityGood, at.Add(-time.Hour), false)
	require.ErrorIs(t, scheduler.Validate(unordered), scheduler.ErrInvalidState)
}

func TestPhaseAndDue(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	state := scheduler.InitialState(at)
	require.Equal(t, scheduler.PhaseFresh, state.Phase())
	require.False(t, state.IsDue(at))
	require.False(t, state.IsScheduled(at))

	state = scheduler.Transition(state, scheduler.QualityWrong, at, false)
	require.Equal(t, scheduler.PhaseLearning, state.Phase())
	require.True(t, state.IsScheduled(at))
	require.True(t, state.IsDue(at.Add(10*time.Minute)))

	state = scheduler.Transition(state, scheduler.QualityGood, at.Add(10*time.Minute), false)
	require.Equal(t, scheduler.PhaseGraduated, state.Phase())
}
