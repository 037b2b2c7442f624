package audio

import (
	"github.com/faiface/beep"
)

const resampleQuality = 4

// Resample converts a mono signal between sample rates with beep's
// interpolating resampler.
func Resample(samples []float64, from, to int) []float64 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}

	pos := 0
	source := beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		if pos >= len(samples) {
			return 0, false
		}
		n := 0
		for n < len(buf) && pos < len(samples) {
			buf[n][0] = samples[pos]
			buf[n][1] = samples[pos]
			n++
			pos++
		}
		return n, true
	})

	resampler := beep.Resample(resampleQuality, beep.SampleRate(from), beep.SampleRate(to), source)

	out := make([]float64, 0, len(samples)*to/from+1)
	buf := make([][2]float64, 1024)
	for {
		n, ok := resampler.Stream(buf)
		for _, frame := range buf[:n] {
			out = append(out, frame[0])
		}
		if !ok || n == 0 {
			break
		}
	}
	return out
}
