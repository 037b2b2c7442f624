package onset

import (
	"math"
	"testing"

	"github.com/himanishpuri/BeatCraft/internal/synth"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/audio"
)

func TestStrengthFrameCount(t *testing.T) {
	tests := []struct {
		samples int
		want    int
	}{
		{1, 1},
		{256, 1},
		{257, 2},
		{44100, 173},
	}

	for _, tt := range tests {
		w := &audio.Waveform{Samples: make([]float64, tt.samples), SampleRate: 44100}
		env := Strength(w, DefaultOptions())
		if env.Len() != tt.want {
			t.Errorf("%d samples: expected %d frames, got %d", tt.samples, tt.want, env.Len())
		}
	}
}

func TestStrengthSilence(t *testing.T) {
	w := &audio.Waveform{Samples: make([]float64, 44100), SampleRate: 44100}
	env := Strength(w, DefaultOptions())

	if !env.IsSilent() {
		t.Error("Expected silent envelope")
	}
	for i, v := range env.Values {
		if v != 0 {
			t.Fatalf("Frame %d: expected 0, got %f", i, v)
		}
	}
}

func TestStrengthEmpty(t *testing.T) {
	env := Strength(&audio.Waveform{SampleRate: 44100}, DefaultOptions())
	if env.Len() != 0 {
		t.Errorf("Expected empty envelope, got %d frames", env.Len())
	}
	if env := Strength(nil, DefaultOptions()); env.Len() != 0 {
		t.Errorf("Expected empty envelope for nil waveform")
	}
}

func TestStrengthClickTrack(t *testing.T) {
	const sr = 44100
	w := &audio.Waveform{Samples: synth.ClickTrack(120, 4, sr), SampleRate: sr}
	env := Strength(w, DefaultOptions())

	for i, v := range env.Values {
		if v < 0 || v > 1 || math.IsNaN(v) {
			t.Fatalf("Frame %d out of [0,1]: %f", i, v)
		}
	}

	// Every click should produce a strong frame within a couple of hops,
	// and the silence halfway between clicks none at all.
	for beat := 0; beat < 8; beat++ {
		frame := int(float64(beat) * 0.5 * sr / HopSize)
		peak := 0.0
		for f := max(0, frame-3); f <= min(env.Len()-1, frame+3); f++ {
			peak = math.Max(peak, env.Values[f])
		}
		if peak < 0.1 {
			t.Errorf("Beat %d: expected strong onset near frame %d, max %f", beat, frame, peak)
		}

		mid := int((float64(beat)*0.5 + 0.25) * sr / HopSize)
		if v := env.Values[mid]; v > 1e-9 {
			t.Errorf("Beat %d: expected silence at frame %d, got %f", beat, mid, v)
		}
	}

	if got := env.FrameTime(172); math.Abs(got-172*256.0/44100) > 1e-12 {
		t.Errorf("FrameTime mismatch: %f", got)
	}
}

func TestMedianFilter(t *testing.T) {
	in := []float64{0, 10, 0, 0, 5, 5, 0}
	want := []float64{0, 0, 0, 0, 5, 5, 0}

	got := medianFilter(in, 3)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestMedianFilterKeepsEdges(t *testing.T) {
	in := []float64{7, 0, 0, 3, 3}
	want := []float64{7, 0, 0, 3, 3}

	got := medianFilter(in, 3)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestStrengthOnsetAtStart(t *testing.T) {
	const sr = 44100
	w := &audio.Waveform{Samples: synth.Clicks([]float64{0, 1.0}, 2, sr), SampleRate: sr}
	env := Strength(w, DefaultOptions())

	if env.Values[0] < 0.5 {
		t.Errorf("Expected strong onset at frame 0, got %f", env.Values[0])
	}
	if env.Values[2] > 0.1 {
		t.Errorf("Expected the start onset to stay one frame wide, frame 2 is %f", env.Values[2])
	}
}

func TestSTFTValidation(t *testing.T) {
	if _, err := STFT([]float64{1, 2, 3}, 4, 2, []float64{1, 1}); err == nil {
		t.Error("Expected error for mismatched window length")
	}
	if _, err := STFT([]float64{1, 2, 3}, 4, 0, []float64{1, 1, 1, 1}); err == nil {
		t.Error("Expected error for zero hop")
	}
}
