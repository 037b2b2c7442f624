// Package tempo estimates the global tempo of an onset envelope from its
// autocorrelation.
package tempo

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/onset"
)

// ErrInvalidTempo is returned when no finite positive tempo can be derived.
var ErrInvalidTempo = errors.New("invalid tempo estimate")

const (
	foldLow  = 70.0
	foldHigh = 200.0
)

type Options struct {
	StartBPM   float64 // centre of the log-normal tempo prior
	StdOctaves float64 // prior width in octaves
	MinBPM     float64
	MaxBPM     float64
}

func DefaultOptions() Options {
	return Options{
		StartBPM:   120,
		StdOctaves: 1,
		MinBPM:     40,
		MaxBPM:     300,
	}
}

// Estimate returns the dominant tempo of env in BPM, folded into the
// 70–200 range when it falls just outside it.
func Estimate(env *onset.Envelope, opts Options) (float64, error) {
	def := DefaultOptions()
	if opts.StartBPM <= 0 {
		opts.StartBPM = def.StartBPM
	}
	if opts.StdOctaves <= 0 {
		opts.StdOctaves = def.StdOctaves
	}
	if opts.MinBPM <= 0 {
		opts.MinBPM = def.MinBPM
	}
	if opts.MaxBPM <= opts.MinBPM {
		opts.MaxBPM = def.MaxBPM
	}

	if env.IsSilent() || env.SampleRate <= 0 || env.HopLength <= 0 {
		return 0, ErrInvalidTempo
	}

	fps := env.FramesPerSecond()
	ac := Autocorrelate(env.Values)
	if len(ac) == 0 || ac[0] <= 0 {
		return 0, ErrInvalidTempo
	}

	minLag := max(1, int(math.Floor(60*fps/opts.MaxBPM)))
	maxLag := min(len(ac)-2, int(math.Ceil(60*fps/opts.MinBPM)))
	if maxLag <= minLag {
		return 0, ErrInvalidTempo
	}

	best, bestScore := -1, math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		bpm := 60 * fps / float64(lag)
		score := math.Log1p(1e6*math.Max(ac[lag], 0)) + logPrior(bpm, opts)
		if score > bestScore {
			best, bestScore = lag, score
		}
	}
	if best < 0 {
		return 0, ErrInvalidTempo
	}

	lag := float64(best) + parabolicOffset(ac[best-1], ac[best], ac[best+1])
	bpm := Fold(60 * fps / lag)

	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return 0, ErrInvalidTempo
	}
	return bpm, nil
}

// Fold doubles tempi below 70 BPM and halves those above 200 BPM.
func Fold(bpm float64) float64 {
	switch {
	case bpm < foldLow:
		return bpm * 2
	case bpm > foldHigh:
		return bpm / 2
	}
	return bpm
}

// Autocorrelate returns the autocorrelation of x for lags 0..len(x)-1,
// normalized by lag 0. Computed with a zero-padded FFT.
func Autocorrelate(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}

	n := 1
	for n < 2*len(x) {
		n <<= 1
	}
	padded := make([]float64, n)
	copy(padded, x)

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, padded)
	for i, c := range coeff {
		coeff[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	full := fft.Sequence(nil, coeff)

	ac := full[:len(x)]
	if ac[0] <= 0 {
		return make([]float64, len(x))
	}
	norm := ac[0]
	for i := range ac {
		ac[i] /= norm
	}
	return ac
}

func logPrior(bpm float64, opts Options) float64 {
	z := (math.Log2(bpm) - math.Log2(opts.StartBPM)) / opts.StdOctaves
	return -0.5 * z * z
}

// parabolicOffset locates the vertex of the parabola through three
// equally spaced points, relative to the middle one.
func parabolicOffset(left, centre, right float64) float64 {
	denom := left - 2*centre + right
	if denom == 0 {
		return 0
	}
	offset := 0.5 * (left - right) / denom
	if math.Abs(offset) >= 1 {
		return 0
	}
	return offset
}
