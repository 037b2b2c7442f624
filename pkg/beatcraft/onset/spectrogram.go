package onset

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	WindowSize = 1024
	HopSize    = 256
)

// MagnitudeSpectrum converts a complex spectrum into a magnitude spectrum,
// DC through Nyquist inclusive.
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	bins := len(spectrum)/2 + 1
	mag := make([]float64, bins)
	for i := 0; i < bins; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// STFT computes a time-major magnitude spectrogram: spectrogram[frame][bin].
// Frames are centred on sample t*hopSize; the signal is zero padded at both
// ends, so there are ceil(len(samples)/hopSize) frames.
func STFT(samples []float64, windowSize, hopSize int, win []float64) ([][]float64, error) {
	if windowSize <= 0 || hopSize <= 0 {
		return nil, errors.New("window and hop size must be positive")
	}
	if len(win) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if len(samples) == 0 {
		return nil, nil
	}

	numFrames := (len(samples) + hopSize - 1) / hopSize
	half := windowSize / 2

	spectrogram := make([][]float64, numFrames)
	frame := make([]float64, windowSize)
	for t := 0; t < numFrames; t++ {
		start := t*hopSize - half
		for i := range frame {
			idx := start + i
			if idx < 0 || idx >= len(samples) {
				frame[i] = 0
				continue
			}
			frame[i] = samples[idx] * win[i]
		}
		spectrogram[t] = MagnitudeSpectrum(fft.FFTReal(frame))
	}
	return spectrogram, nil
}

// Spectrogram runs a Hann-windowed STFT with the package defaults when
// windowSize or hopSize is zero.
func Spectrogram(samples []float64, windowSize, hopSize int) ([][]float64, error) {
	if windowSize == 0 {
		windowSize = WindowSize
	}
	if hopSize == 0 {
		hopSize = HopSize
	}
	return STFT(samples, windowSize, hopSize, window.Hann(windowSize))
}
