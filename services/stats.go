package services

import (
	"math"

	"golang.org/x/exp/slices"
)

// Percentile returns the q-quantile (0 ≤ q ≤ 1) of sorted values using
// linear interpolation between the two closest ranks. It returns NaN for an
// empty slice.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// sortedCopy returns values in ascending order without touching the input.
func sortedCopy(values []float64) []float64 {
	out := slices.Clone(values)
	slices.Sort(out)
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
