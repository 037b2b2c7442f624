package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// FFmpegDecoder pipes the buffer through an ffmpeg binary and reads back
// mono 16-bit PCM at SampleRate.
type FFmpegDecoder struct {
	Path       string
	SampleRate int
	Timeout    time.Duration
}

// NewFFmpegDecoder returns nil when ffmpeg is not on PATH.
func NewFFmpegDecoder(sampleRate int) *FFmpegDecoder {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &FFmpegDecoder{Path: path, SampleRate: sampleRate, Timeout: 30 * time.Second}
}

func (f *FFmpegDecoder) Name() string { return "ffmpeg" }

func (f *FFmpegDecoder) Decode(ctx context.Context, data []byte) ([]float64, int, error) {
	if _, ok := ctx.Deadline(); !ok && f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		f.Path,
		"-v", "quiet",
		"-i", "pipe:0",
		"-ac", "1", // mono
		"-ar", strconv.Itoa(f.SampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("ffmpeg failed: %v (%s)", err, stderr.String())
	}

	raw := stdout.Bytes()
	samples := make([]float64, len(raw)/2)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}
	return samples, f.SampleRate, nil
}
