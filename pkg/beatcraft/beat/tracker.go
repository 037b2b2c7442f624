// Package beat places beats on an onset envelope given a tempo estimate.
//
// The primary strategy is dynamic programming over the envelope; when it
// yields too few beats the tracker falls back to filtered onset peaks.
package beat

import (
	"errors"
	"math"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/onset"
)

var (
	// ErrNoOnsets is returned for an empty or all-zero envelope, or a
	// non-positive tempo.
	ErrNoOnsets = errors.New("no onsets detected")
	// ErrInsufficientBeats is returned when no strategy placed any beat.
	ErrInsufficientBeats = errors.New("insufficient beats detected")
)

// Strategy names the algorithm that produced a beat sequence.
type Strategy string

const (
	StrategyDP           Strategy = "dp"
	StrategyPeakFallback Strategy = "peak_fallback"
)

type Options struct {
	Tightness float64
	MinBeats  int // fewer DP beats than this triggers the fallback
	Peaks     onset.PeakOptions
}

func DefaultOptions() Options {
	return Options{
		Tightness: 100,
		MinBeats:  4,
		Peaks:     onset.DefaultPeakOptions(),
	}
}

// Result is a beat sequence tagged with the strategy that produced it.
type Result struct {
	Strategy Strategy
	Frames   []int
}

// Times converts beat frames to seconds on env's time base.
func (r Result) Times(env *onset.Envelope) []float64 {
	times := make([]float64, len(r.Frames))
	for i, f := range r.Frames {
		times[i] = env.FrameTime(f)
	}
	return times
}

// Track runs the dynamic programming tracker and falls back to peak
// picking when it places fewer than MinBeats beats.
func Track(env *onset.Envelope, bpm float64, opts Options) (Result, error) {
	opts = withDefaults(opts)

	if env.IsSilent() || !(bpm > 0) || math.IsInf(bpm, 0) {
		return Result{}, ErrNoOnsets
	}

	dp := DynamicProgramming(env, bpm, opts)
	if len(dp) >= opts.MinBeats {
		return Result{Strategy: StrategyDP, Frames: dp}, nil
	}

	if fallback := PeakFallback(env, bpm, opts); len(fallback) >= opts.MinBeats {
		return Result{Strategy: StrategyPeakFallback, Frames: fallback}, nil
	}

	if len(dp) == 0 {
		return Result{}, ErrInsufficientBeats
	}
	return Result{Strategy: StrategyDP, Frames: dp}, nil
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.Tightness <= 0 {
		opts.Tightness = def.Tightness
	}
	if opts.MinBeats <= 0 {
		opts.MinBeats = def.MinBeats
	}
	if opts.Peaks == (onset.PeakOptions{}) {
		opts.Peaks = def.Peaks
	}
	return opts
}

// periodFrames is the beat period in envelope frames.
func periodFrames(env *onset.Envelope, bpm float64) float64 {
	return 60 * env.FramesPerSecond() / bpm
}
