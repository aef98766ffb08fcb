package scheduler

import (
	"math"
	"math/big"
)

var (
	hundred = big.NewFloat(100)
	half    = big.NewFloat(0.5)
)

// RoundEasiness rounds ef to two decimal places.
//
// Rounding works on the exact binary value of ef and breaks ties away from
// zero, so 2.125 becomes 2.13 while 2.675 (stored as 2.67499999...) becomes
// 2.67. This matches fixed-point string formatting of the stored histories.
func RoundEasiness(ef float64) float64 {
	if math.IsNaN(ef) || math.IsInf(ef, 0) {
		return ef
	}
	neg := ef < 0
	if neg {
		ef = -ef
	}

	// 256 bits of mantissa keep ef*100+0.5 exact for any realistic easiness.
	scaled := new(big.Float).SetPrec(256).SetFloat64(ef)
	scaled.Mul(scaled, hundred)
	scaled.Add(scaled, half)
	cents, _ := scaled.Int(nil)

	out, _ := new(big.Float).SetInt(cents).Float64()
	out /= 100
	if neg {
		return -out
	}
	return out
}
