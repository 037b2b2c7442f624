// Package pattern lays drum templates over a beat sequence.
package pattern

import (
	"math"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/swing"
)

// offbeatTolerance is how far from the half-beat, as a fraction of the
// beat period, a note may sit and still count as an off-beat.
const offbeatTolerance = 0.125

// Generate builds a plan from beat times. swingRatio is clamped to the
// musical range; at 0.5 the beats are used as given. Empty beats give an
// empty plan.
func Generate(beats []float64, tempo float64, tmpl Template, velocity int, swingRatio float64) *Plan {
	swung := ApplySwing(beats, swingRatio)
	return NewPlan(tempo, tmpl.notes(swung, velocity))
}

// ApplySwing moves every odd-indexed beat to ratio of the way between its
// neighbours. A trailing odd beat mirrors the preceding interval. The
// ratio is clamped first; at 0.5 the beats are returned unchanged.
func ApplySwing(beats []float64, ratio float64) []float64 {
	out := make([]float64, len(beats))
	copy(out, beats)

	r := swing.Clamp(ratio)
	if r == swing.Straight {
		return out
	}

	for i := 1; i < len(beats); i += 2 {
		prev := beats[i-1]
		next := beats[i] + (beats[i] - prev)
		if i+1 < len(beats) {
			next = beats[i+1]
		}
		out[i] = prev + (next-prev)*r
	}
	return out
}

// Reswing delays the off-beat notes of a straight plan. Notes sitting
// halfway between beats of the plan's tempo grid, measured from its first
// note, move later by (ratio-0.5) of a beat. Durations are unchanged.
func Reswing(p *Plan, ratio float64) *Plan {
	notes := p.Notes()
	r := swing.Clamp(ratio)
	if r == swing.Straight || len(notes) == 0 || !(p.tempo > 0) {
		return NewPlan(p.tempo, notes)
	}

	period := 60 / p.tempo
	origin := notes[0].Onset
	shift := (r - swing.Straight) * period

	for i, n := range notes {
		pos := (n.Onset - origin) / period
		phase := pos - math.Floor(pos)
		if math.Abs(phase-0.5) <= offbeatTolerance {
			notes[i].Onset += shift
		}
	}
	return NewPlan(p.tempo, notes)
}
