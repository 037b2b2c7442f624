// Package render draws analysis results as images.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"path/filepath"

	"github.com/eligwz/spectrogram"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/audio"
	"github.com/himanishpuri/BeatCraft/pkg/utils"
)

type Options struct {
	Width       int
	Height      int    // also the number of frequency bins
	Background  string // hex RGB
	MarkerColor string // hex RGB
	Log10       bool
}

func DefaultOptions() Options {
	return Options{
		Width:       2048,
		Height:      512,
		Background:  "000000",
		MarkerColor: "ff3030",
	}
}

// Image draws the spectrogram of w with a vertical line at every beat time.
func Image(w *audio.Waveform, beats []float64, opts Options) (*spectrogram.Image128, error) {
	def := DefaultOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.Background == "" {
		opts.Background = def.Background
	}
	if opts.MarkerColor == "" {
		opts.MarkerColor = def.MarkerColor
	}

	if w == nil || len(w.Samples) == 0 {
		return nil, errors.New("nothing to render: empty waveform")
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, opts.Width, opts.Height))

	bg := spectrogram.ParseColor(opts.Background)
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	// FFT with a Hamming window, magnitude scale.
	spectrogram.Drawfft(
		img,
		w.Samples,
		uint32(w.SampleRate),
		uint32(opts.Height),
		false, // RECTANGLE
		false, // DFT
		true,  // MAG
		opts.Log10,
	)

	marker := spectrogram.ParseColor(opts.MarkerColor)
	seconds := w.Seconds()
	for _, b := range beats {
		x := MarkerX(b, seconds, opts.Width)
		if x < 0 {
			continue
		}
		for y := 0; y < opts.Height; y++ {
			img.Set(x, y, marker)
		}
	}
	return img, nil
}

// Spectrogram renders the image and saves it as a PNG at path.
func Spectrogram(path string, w *audio.Waveform, beats []float64, opts Options) error {
	img, err := Image(w, beats, opts)
	if err != nil {
		return err
	}
	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := spectrogram.SavePng(img, path); err != nil {
		return fmt.Errorf("saving PNG to %s: %w", path, err)
	}
	return nil
}

// MarkerX maps a time to an image column, or -1 when it falls outside.
func MarkerX(t, seconds float64, width int) int {
	if seconds <= 0 || t < 0 || t >= seconds {
		return -1
	}
	return int(t / seconds * float64(width))
}
