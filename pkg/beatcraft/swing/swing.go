// Package swing measures how unevenly consecutive beat intervals alternate.
package swing

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	Straight = 0.5
	Max      = 0.75

	minBeats = 4
)

// Estimate returns mean(odd intervals) / (mean(odd) + mean(even)) where
// intervals are indexed from 0. Fewer than four beats, or a degenerate
// split, yields Straight. The value is not clamped.
func Estimate(beats []float64) float64 {
	if len(beats) < minBeats {
		return Straight
	}

	var even, odd []float64
	for i := 1; i < len(beats); i++ {
		interval := beats[i] - beats[i-1]
		if (i-1)%2 == 0 {
			even = append(even, interval)
		} else {
			odd = append(odd, interval)
		}
	}
	if len(even) == 0 || len(odd) == 0 {
		return Straight
	}

	meanOdd := stat.Mean(odd, nil)
	denom := meanOdd + stat.Mean(even, nil)
	if denom == 0 || math.IsNaN(denom) {
		return Straight
	}
	return meanOdd / denom
}

// Clamp limits r to [Straight, Max]. NaN maps to Straight.
func Clamp(r float64) float64 {
	if math.IsNaN(r) {
		return Straight
	}
	return math.Max(Straight, math.Min(Max, r))
}
