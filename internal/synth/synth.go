// Package synth generates deterministic test signals: click tracks at a
// fixed tempo, optionally swung, and WAV files holding them.
package synth

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	clickFreq     = 1000.0
	clickDuration = 0.02
	clickDecay    = 200.0
)

// ClickTrack renders a click on every beat at bpm for the given duration.
func ClickTrack(bpm, seconds float64, sampleRate int) []float64 {
	period := 60.0 / bpm
	var onsets []float64
	for t := 0.0; t < seconds; t += period {
		onsets = append(onsets, t)
	}
	return Clicks(onsets, seconds, sampleRate)
}

// SwungClickTrack renders clicks at bpm where every odd click is delayed so
// that it falls at ratio of the way between its neighbours.
func SwungClickTrack(bpm, ratio, seconds float64, sampleRate int) []float64 {
	pair := 2 * 60.0 / bpm
	var onsets []float64
	for t := 0.0; t < seconds; t += pair {
		onsets = append(onsets, t, t+ratio*pair)
	}
	return Clicks(onsets, seconds, sampleRate)
}

// Clicks renders a short decaying sine burst at each onset time.
func Clicks(onsets []float64, seconds float64, sampleRate int) []float64 {
	samples := make([]float64, int(seconds*float64(sampleRate)))
	clickLen := int(clickDuration * float64(sampleRate))
	for _, onset := range onsets {
		start := int(onset * float64(sampleRate))
		for i := 0; i < clickLen && start+i < len(samples); i++ {
			t := float64(i) / float64(sampleRate)
			samples[start+i] += 0.9 * math.Exp(-clickDecay*t) * math.Sin(2*math.Pi*clickFreq*t)
		}
	}
	return samples
}

// WriteWAV encodes mono samples in [-1, 1] as 16-bit PCM.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ints := make([]int, len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		ints[i] = int(s * 32767)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	return enc.Close()
}

// WAVBytes writes samples to a WAV file under dir and returns its contents.
func WAVBytes(dir string, samples []float64, sampleRate int) ([]byte, error) {
	f, err := os.CreateTemp(dir, "synth-*.wav")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := WriteWAV(path, samples, sampleRate); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}
