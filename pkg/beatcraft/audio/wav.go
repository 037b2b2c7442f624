package audio

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-audio/wav"
)

// WAVDecoder reads integer PCM WAV through go-audio.
type WAVDecoder struct{}

func (WAVDecoder) Name() string { return "wav" }

func (WAVDecoder) Decode(_ context.Context, data []byte) ([]float64, int, error) {
	if !hasRIFFHeader(data) {
		return nil, 0, errNotRecognized
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file: %w", errNotRecognized)
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, 0, fmt.Errorf("WAV audio format %d is not integer PCM", d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading PCM data: %w", err)
	}

	bitDepth := int(d.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	interleaved := make([]float64, len(buf.Data))
	if bitDepth == 8 {
		for i, s := range buf.Data {
			interleaved[i] = (float64(s) - 128) / 128
		}
	} else {
		scale := 1.0 / float64(int64(1)<<uint(bitDepth-1))
		for i, s := range buf.Data {
			interleaved[i] = float64(s) * scale
		}
	}

	return downmix(interleaved, int(d.NumChans)), int(d.SampleRate), nil
}
