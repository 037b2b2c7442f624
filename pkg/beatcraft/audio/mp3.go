package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/faiface/beep/mp3"
)

// MP3Decoder decodes MPEG layer III through beep.
type MP3Decoder struct{}

func (MP3Decoder) Name() string { return "mp3" }

func (MP3Decoder) Decode(ctx context.Context, data []byte) ([]float64, int, error) {
	if !looksLikeMP3(data) {
		return nil, 0, errNotRecognized
	}

	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("opening mp3 stream: %w", err)
	}
	defer streamer.Close()

	samples := make([]float64, 0, streamer.Len())
	buf := make([][2]float64, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		n, ok := streamer.Stream(buf)
		for _, frame := range buf[:n] {
			samples = append(samples, (frame[0]+frame[1])/2)
		}
		if !ok || n == 0 {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, 0, fmt.Errorf("decoding mp3 frames: %w", err)
	}

	return samples, int(format.SampleRate), nil
}

// looksLikeMP3 accepts an ID3v2 tag or a bare MPEG frame sync.
func looksLikeMP3(data []byte) bool {
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}
