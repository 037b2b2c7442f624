package audio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultSampleRate  = 44100
	DefaultMaxDuration = 30 * time.Second
)

// errNotRecognized is returned by a decoder that does not handle the
// buffer's container format at all, as opposed to one that failed midway.
var errNotRecognized = errors.New("format not recognized")

// Decoder turns an encoded byte buffer into mono float samples.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, data []byte) (samples []float64, sampleRate int, err error)
}

type LoadOptions struct {
	TargetSampleRate int           // defaults to 44100
	MaxDuration      time.Duration // defaults to 30s; samples past it are dropped
	Decoders         []Decoder     // defaults to DefaultDecoders(TargetSampleRate)
}

// DefaultDecoders returns the decoder chain in the order it is tried:
// integer PCM WAV, float/extensible WAV, MP3 and, when ffmpeg is on PATH,
// ffmpeg as a catch-all.
func DefaultDecoders(sampleRate int) []Decoder {
	decoders := []Decoder{WAVDecoder{}, RIFFDecoder{}, MP3Decoder{}}
	if ff := NewFFmpegDecoder(sampleRate); ff != nil {
		decoders = append(decoders, ff)
	}
	return decoders
}

// Load decodes data into a mono waveform at the target sample rate,
// truncated to the maximum analysis duration.
func Load(ctx context.Context, data []byte, opts LoadOptions) (*Waveform, error) {
	if opts.TargetSampleRate <= 0 {
		opts.TargetSampleRate = DefaultSampleRate
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if opts.Decoders == nil {
		opts.Decoders = DefaultDecoders(opts.TargetSampleRate)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input buffer", ErrDecode)
	}

	samples, rate, err := decode(ctx, data, opts.Decoders)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrEmptySignal
	}

	// Truncate before resampling so long inputs are not resampled in full.
	samples = truncate(samples, rate, opts.MaxDuration)
	if rate != opts.TargetSampleRate {
		samples = Resample(samples, rate, opts.TargetSampleRate)
		samples = truncate(samples, opts.TargetSampleRate, opts.MaxDuration)
	}

	return NewWaveform(samples, opts.TargetSampleRate)
}

func decode(ctx context.Context, data []byte, decoders []Decoder) ([]float64, int, error) {
	var errs []error
	for _, d := range decoders {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		samples, rate, err := d.Decode(ctx, data)
		if err == nil && rate <= 0 {
			err = fmt.Errorf("invalid sample rate %d", rate)
		}
		if err == nil {
			return samples, rate, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, err
		}
		errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
	}
	if len(errs) == 0 {
		return nil, 0, fmt.Errorf("%w: no decoders configured", ErrDecode)
	}
	return nil, 0, fmt.Errorf("%w: %w", ErrDecode, errors.Join(errs...))
}

func truncate(samples []float64, sampleRate int, maxDuration time.Duration) []float64 {
	limit := int(maxDuration.Seconds() * float64(sampleRate))
	if limit > 0 && len(samples) > limit {
		return samples[:limit]
	}
	return samples
}

// downmix averages interleaved frames into a mono signal.
func downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}
