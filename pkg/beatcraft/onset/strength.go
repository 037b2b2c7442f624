// Package onset turns a waveform into a per-frame onset strength envelope
// using log-compressed spectral flux.
package onset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/audio"
)

// silenceFloor is the largest raw flux still treated as silence.
const silenceFloor = 1e-10

type Options struct {
	WindowSize   int
	HopLength    int
	MedianWindow int // temporal median filter length in frames; <=1 disables
}

func DefaultOptions() Options {
	return Options{
		WindowSize:   WindowSize,
		HopLength:    HopSize,
		MedianWindow: 3,
	}
}

// Envelope is an onset strength curve normalized to [0, 1].
type Envelope struct {
	Values     []float64
	HopLength  int
	SampleRate int
}

func (e *Envelope) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Values)
}

// FrameTime converts a frame index to seconds.
func (e *Envelope) FrameTime(frame int) float64 {
	return float64(frame*e.HopLength) / float64(e.SampleRate)
}

// FramesPerSecond is the envelope frame rate.
func (e *Envelope) FramesPerSecond() float64 {
	return float64(e.SampleRate) / float64(e.HopLength)
}

// IsSilent reports whether the envelope is empty or all zero.
func (e *Envelope) IsSilent() bool {
	if e.Len() == 0 {
		return true
	}
	return floats.Max(e.Values) <= 0
}

// Strength computes the onset strength envelope of w. Silent input yields
// an all-zero envelope; an empty waveform yields an empty one.
func Strength(w *audio.Waveform, opts Options) *Envelope {
	def := DefaultOptions()
	if opts.WindowSize <= 0 {
		opts.WindowSize = def.WindowSize
	}
	if opts.HopLength <= 0 {
		opts.HopLength = def.HopLength
	}

	env := &Envelope{HopLength: opts.HopLength}
	if w == nil || len(w.Samples) == 0 {
		return env
	}
	env.SampleRate = w.SampleRate

	spec, err := Spectrogram(w.Samples, opts.WindowSize, opts.HopLength)
	if err != nil || len(spec) == 0 {
		return env
	}

	flux := spectralFlux(spec)
	if opts.MedianWindow > 1 {
		flux = medianFilter(flux, opts.MedianWindow)
	}
	normalize(flux)

	env.Values = flux
	return env
}

// spectralFlux averages the positive log-magnitude change over bins.
func spectralFlux(spec [][]float64) []float64 {
	bins := len(spec[0])
	prev := make([]float64, bins)
	cur := make([]float64, bins)
	flux := make([]float64, len(spec))

	for t, frame := range spec {
		var sum float64
		for k, mag := range frame {
			cur[k] = math.Log1p(mag)
			if d := cur[k] - prev[k]; d > 0 {
				sum += d
			}
		}
		flux[t] = sum / float64(bins)
		prev, cur = cur, prev
	}
	return flux
}

// medianFilter applies a centred running median of odd length size. The
// ends are padded with the edge values so an onset in the first or last
// frame survives.
func medianFilter(x []float64, size int) []float64 {
	if size%2 == 0 {
		size++
	}
	out := make([]float64, len(x))
	half := size / 2
	buf := make([]float64, size)
	for i := range x {
		for j := range buf {
			idx := min(len(x)-1, max(0, i-half+j))
			buf[j] = x[idx]
		}
		sort.Float64s(buf)
		out[i] = buf[half]
	}
	return out
}

// normalize rescales x in place to [0, 1]. Flat or near-silent input
// becomes all zero.
func normalize(x []float64) {
	if len(x) == 0 {
		return
	}
	lo, hi := floats.Min(x), floats.Max(x)
	if hi-lo <= silenceFloor {
		for i := range x {
			x[i] = 0
		}
		return
	}
	floats.AddConst(-lo, x)
	floats.Scale(1/(hi-lo), x)
}
