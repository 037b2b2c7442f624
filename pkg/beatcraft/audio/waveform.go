package audio

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDecode is returned when no decoder in the chain could read the buffer.
	ErrDecode = errors.New("audio decode failed")
	// ErrEmptySignal is returned when decoding succeeded but produced no samples.
	ErrEmptySignal = errors.New("decoded signal is empty")
)

// Waveform is a mono signal normalized to [-1, 1].
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// NewWaveform validates samples and rate and wraps them in a Waveform.
func NewWaveform(samples []float64, sampleRate int) (*Waveform, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if len(samples) == 0 {
		return nil, ErrEmptySignal
	}
	return &Waveform{Samples: samples, SampleRate: sampleRate}, nil
}

// Seconds returns the signal length in seconds.
func (w *Waveform) Seconds() float64 {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

func (w *Waveform) Duration() time.Duration {
	return time.Duration(w.Seconds() * float64(time.Second))
}
