// Package pipeline runs the analysis stages in order: onset strength,
// tempo, beat tracking and swing. It holds no state and does no I/O, so it
// is shared by the service and the WASM build.
package pipeline

import (
	"context"
	"fmt"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/audio"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/beat"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/onset"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/swing"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/tempo"
)

type Stage string

const (
	StageDecode Stage = "decode"
	StageOnset  Stage = "onset"
	StageTempo  Stage = "tempo"
	StageBeats  Stage = "beats"
	StageSwing  Stage = "swing"
)

// StageError records which stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

type Options struct {
	Load  audio.LoadOptions
	Onset onset.Options
	Tempo tempo.Options
	Beat  beat.Options
}

func DefaultOptions() Options {
	return Options{
		Onset: onset.DefaultOptions(),
		Tempo: tempo.DefaultOptions(),
		Beat:  beat.DefaultOptions(),
	}
}

// Result is a complete, consistent analysis.
type Result struct {
	Tempo      float64
	BeatTimes  []float64
	SwingRatio float64 // raw, not clamped
	Strategy   beat.Strategy
	Seconds    float64 // analysed signal length
}

// Analyze decodes data and runs the stages on it.
func Analyze(ctx context.Context, data []byte, opts Options) (*Result, error) {
	w, err := audio.Load(ctx, data, opts.Load)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}
	return Run(ctx, w, opts)
}

// Run analyses a decoded waveform. The context is checked between stages;
// on cancellation no partial result is returned.
func Run(ctx context.Context, w *audio.Waveform, opts Options) (*Result, error) {
	if w == nil || len(w.Samples) == 0 {
		return nil, &StageError{Stage: StageDecode, Err: audio.ErrEmptySignal}
	}
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageOnset, Err: err}
	}

	env := onset.Strength(w, opts.Onset)
	if env.IsSilent() {
		return nil, &StageError{Stage: StageOnset, Err: beat.ErrNoOnsets}
	}
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageTempo, Err: err}
	}

	bpm, err := tempo.Estimate(env, opts.Tempo)
	if err != nil {
		return nil, &StageError{Stage: StageTempo, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageBeats, Err: err}
	}

	tracked, err := beat.Track(env, bpm, opts.Beat)
	if err != nil {
		return nil, &StageError{Stage: StageBeats, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageSwing, Err: err}
	}

	times := tracked.Times(env)
	return &Result{
		Tempo:      bpm,
		BeatTimes:  times,
		SwingRatio: swing.Estimate(times),
		Strategy:   tracked.Strategy,
		Seconds:    w.Seconds(),
	}, nil
}
