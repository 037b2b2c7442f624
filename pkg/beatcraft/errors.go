package beatcraft

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/audio"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/beat"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pipeline"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/tempo"
)

var (
	ErrDecode            = audio.ErrDecode
	ErrEmptySignal       = audio.ErrEmptySignal
	ErrNoOnsets          = beat.ErrNoOnsets
	ErrInsufficientBeats = beat.ErrInsufficientBeats
	ErrInvalidTempo      = tempo.ErrInvalidTempo

	ErrTimeout         = errors.New("analysis timed out")
	ErrQueueFull       = errors.New("analysis queue is full")
	ErrClosed          = errors.New("service is closed")
	ErrNotFound        = errors.New("analysis not found")
	ErrHistoryDisabled = errors.New("analysis history is disabled")
)

// ErrorKind separates caller mistakes from our own failures.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindBadInput
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadInput:
		return "bad_input"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// AnalysisError is returned by every failed analysis.
type AnalysisError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed at %s (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// newAnalysisError classifies err and tags it with the failing stage.
func newAnalysisError(err error) *AnalysisError {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae
	}

	stage := "queue"
	var se *pipeline.StageError
	if errors.As(err, &se) {
		stage = string(se.Stage)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &AnalysisError{Stage: stage, Kind: KindTimeout, Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
	case errors.Is(err, ErrQueueFull), errors.Is(err, context.Canceled):
		return &AnalysisError{Stage: stage, Kind: KindTimeout, Err: err}
	case errors.Is(err, ErrDecode),
		errors.Is(err, ErrEmptySignal),
		errors.Is(err, ErrNoOnsets),
		errors.Is(err, ErrInsufficientBeats):
		return &AnalysisError{Stage: stage, Kind: KindBadInput, Err: err}
	}
	return &AnalysisError{Stage: stage, Kind: KindInternal, Err: err}
}

// KindOf reports the kind of an analysis error, KindInternal for others.
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
