package beat

import (
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/BeatCraft/internal/synth"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/audio"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/onset"
)

func clickEnvelope(bpm, seconds float64) *onset.Envelope {
	w := &audio.Waveform{Samples: synth.ClickTrack(bpm, seconds, 44100), SampleRate: 44100}
	return onset.Strength(w, onset.DefaultOptions())
}

func TestTrackClickTrack(t *testing.T) {
	env := clickEnvelope(120, 10)

	res, err := Track(env, 120, DefaultOptions())
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if res.Strategy != StrategyDP {
		t.Errorf("Expected DP strategy, got %s", res.Strategy)
	}

	times := res.Times(env)
	if len(times) < 8 {
		t.Fatalf("Expected at least 8 beats, got %d", len(times))
	}

	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			t.Fatalf("Beat times not strictly increasing at %d: %v", i, times)
		}
		if d := times[i] - times[i-1]; math.Abs(d-0.5) > 0.05 {
			t.Errorf("Interval %d: expected ~0.5s, got %.3f", i, d)
		}
	}

	// Each beat should land on a click.
	for i, bt := range times {
		nearest := math.Round(bt/0.5) * 0.5
		if math.Abs(bt-nearest) > 0.03 {
			t.Errorf("Beat %d at %.3fs is not near a click", i, bt)
		}
	}
}

func TestTrackEndsOnLastClick(t *testing.T) {
	tests := []struct {
		bpm     float64
		seconds float64
	}{
		{140, 5},
		{100, 5.3},
		{120, 4.8},
	}

	for _, tt := range tests {
		period := 60 / tt.bpm
		env := clickEnvelope(tt.bpm, tt.seconds)

		res, err := Track(env, tt.bpm, DefaultOptions())
		if err != nil {
			t.Fatalf("%.0f BPM: Track failed: %v", tt.bpm, err)
		}
		times := res.Times(env)
		if len(times) < 4 {
			t.Fatalf("%.0f BPM: expected at least 4 beats, got %d", tt.bpm, len(times))
		}

		for i, bt := range times {
			if nearest := math.Round(bt/period) * period; math.Abs(bt-nearest) > 0.03 {
				t.Errorf("%.0f BPM: beat %d at %.3fs is not near a click", tt.bpm, i, bt)
			}
			if i > 0 {
				if d := times[i] - times[i-1]; math.Abs(d-period) > 0.1*period {
					t.Errorf("%.0f BPM: interval %d is %.3fs, expected ~%.3fs", tt.bpm, i, d, period)
				}
			}
		}

		lastClick := math.Floor(tt.seconds/period) * period
		if last := times[len(times)-1]; last > lastClick+0.03 {
			t.Errorf("%.0f BPM: last beat %.3fs falls after the last click at %.3fs", tt.bpm, last, lastClick)
		}
		if f := res.Frames[len(res.Frames)-1]; env.Values[f] < 0.1 {
			t.Errorf("%.0f BPM: last beat frame %d has no onset (%f)", tt.bpm, f, env.Values[f])
		}
	}
}

func TestTrackErrors(t *testing.T) {
	silent := &onset.Envelope{Values: make([]float64, 500), HopLength: 256, SampleRate: 44100}
	clicks := clickEnvelope(120, 4)

	tests := []struct {
		name string
		env  *onset.Envelope
		bpm  float64
		want error
	}{
		{"silent envelope", silent, 120, ErrNoOnsets},
		{"empty envelope", &onset.Envelope{HopLength: 256, SampleRate: 44100}, 120, ErrNoOnsets},
		{"zero tempo", clicks, 0, ErrNoOnsets},
		{"negative tempo", clicks, -10, ErrNoOnsets},
		{"NaN tempo", clicks, math.NaN(), ErrNoOnsets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Track(tt.env, tt.bpm, DefaultOptions()); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTrackKeepsDPWhenNothingReachesMinimum(t *testing.T) {
	env := clickEnvelope(120, 4)

	opts := DefaultOptions()
	opts.MinBeats = 1000

	res, err := Track(env, 120, opts)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if res.Strategy != StrategyDP {
		t.Errorf("Expected DP result when no strategy reaches the minimum, got %s", res.Strategy)
	}
	if len(res.Frames) == 0 {
		t.Error("Expected DP beats to be kept")
	}
}

func TestTrackFallsBackToPeaks(t *testing.T) {
	// Two faint onsets then two strong ones, 100 frames apart. The DP path
	// keeps only the strong pair; the peak picker, tuned to a low delta,
	// finds all four.
	env := &onset.Envelope{Values: make([]float64, 500), HopLength: 256, SampleRate: 44100}
	env.Values[100] = 0.05
	env.Values[200] = 0.05
	env.Values[300] = 1
	env.Values[400] = 1
	bpm := 60 * env.FramesPerSecond() / 100

	opts := DefaultOptions()
	opts.Peaks.Delta = 0.01

	if dp := DynamicProgramming(env, bpm, opts); len(dp) >= opts.MinBeats {
		t.Fatalf("Expected DP to place fewer than %d beats, got %v", opts.MinBeats, dp)
	}

	res, err := Track(env, bpm, opts)
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if res.Strategy != StrategyPeakFallback {
		t.Errorf("Expected peak fallback, got %s", res.Strategy)
	}
	want := []int{100, 200, 300, 400}
	if len(res.Frames) != len(want) {
		t.Fatalf("Expected %v, got %v", want, res.Frames)
	}
	for i := range want {
		if res.Frames[i] != want[i] {
			t.Errorf("Beat %d: expected frame %d, got %d", i, want[i], res.Frames[i])
		}
	}
}

func TestPeakFallback(t *testing.T) {
	env := &onset.Envelope{Values: make([]float64, 500), HopLength: 256, SampleRate: 44100}
	for _, f := range []int{10, 100, 170, 260, 350} {
		env.Values[f] = 1
	}
	// 100-frame period, so peaks closer than 80 frames are dropped.
	bpm := 60 * env.FramesPerSecond() / 100

	got := PeakFallback(env, bpm, DefaultOptions())
	want := []int{10, 100, 260, 350}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Beat %d: expected frame %d, got %d", i, want[i], got[i])
		}
	}
}

func TestDynamicProgrammingSilent(t *testing.T) {
	env := &onset.Envelope{Values: make([]float64, 100), HopLength: 256, SampleRate: 44100}
	if beats := DynamicProgramming(env, 120, DefaultOptions()); beats != nil {
		t.Errorf("Expected no beats, got %v", beats)
	}
}

func TestResultTimes(t *testing.T) {
	env := &onset.Envelope{HopLength: 256, SampleRate: 44100}
	res := Result{Strategy: StrategyDP, Frames: []int{0, 86, 172}}

	times := res.Times(env)
	for i, f := range res.Frames {
		want := float64(f) * 256 / 44100
		if math.Abs(times[i]-want) > 1e-12 {
			t.Errorf("Frame %d: expected %f, got %f", f, want, times[i])
		}
	}
}
