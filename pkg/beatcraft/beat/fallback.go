package beat

import (
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/onset"
)

// PeakFallback picks onset peaks and keeps those at least 0.8 beat periods
// after the previously kept one.
func PeakFallback(env *onset.Envelope, bpm float64, opts Options) []int {
	opts = withDefaults(opts)
	if env.IsSilent() || !(bpm > 0) {
		return nil
	}

	minGap := int(periodFrames(env, bpm) * 0.8)

	var beats []int
	for _, p := range onset.PickPeaks(env.Values, opts.Peaks) {
		if len(beats) == 0 || p-beats[len(beats)-1] >= minGap {
			beats = append(beats, p)
		}
	}
	return beats
}
