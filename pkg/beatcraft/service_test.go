package beatcraft

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/himanishpuri/BeatCraft/internal/synth"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/audio"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pattern"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}

func newTestService(t *testing.T, opts ...Option) Service {
	t.Helper()
	base := []Option{
		WithDBPath(filepath.Join(t.TempDir(), "test.sqlite3")),
		WithLogger(nopLogger{}),
		WithWorkers(2),
	}
	svc, err := NewService(append(base, opts...)...)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func clickWAV(t *testing.T, bpm, seconds float64) []byte {
	t.Helper()
	data, err := synth.WAVBytes(t.TempDir(), synth.ClickTrack(bpm, seconds, 44100), 44100)
	if err != nil {
		t.Fatalf("Failed to build WAV: %v", err)
	}
	return data
}

func TestServiceAnalyze(t *testing.T) {
	svc := newTestService(t)

	a, err := svc.Analyze(context.Background(), clickWAV(t, 120, 10), "click.wav")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if math.Abs(a.Tempo-120) > 5 {
		t.Errorf("Expected ~120 BPM, got %.2f", a.Tempo)
	}
	if len(a.BeatTimes) < 8 {
		t.Errorf("Expected at least 8 beats, got %d", len(a.BeatTimes))
	}
	if a.ID == "" || a.Source != "click.wav" {
		t.Errorf("Unexpected analysis metadata: %+v", a)
	}
	if a.DurationMs != 10000 {
		t.Errorf("Expected 10000ms, got %d", a.DurationMs)
	}

	stored, err := svc.GetAnalysis(a.ID)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if stored.Tempo != a.Tempo || len(stored.BeatTimes) != len(a.BeatTimes) {
		t.Errorf("Stored analysis differs: %+v vs %+v", stored, a)
	}

	stats := svc.Stats()
	if stats.Completed != 1 || stats.StoredAnalyses != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestServiceAnalyzeErrors(t *testing.T) {
	svc := newTestService(t)

	silence, err := synth.WAVBytes(t.TempDir(), make([]float64, 44100*2), 44100)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		data  []byte
		want  error
		stage string
	}{
		{"empty", nil, ErrDecode, "decode"},
		{"silence", silence, ErrNoOnsets, "onset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Analyze(context.Background(), tt.data, tt.name)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			var ae *AnalysisError
			if !errors.As(err, &ae) {
				t.Fatalf("Expected *AnalysisError, got %T", err)
			}
			if ae.Kind != KindBadInput {
				t.Errorf("Expected bad input, got %s", ae.Kind)
			}
			if ae.Stage != tt.stage {
				t.Errorf("Expected stage %s, got %s", tt.stage, ae.Stage)
			}
		})
	}

	if n, _ := svc.ListAnalyses(0); len(n) != 0 {
		t.Errorf("Failed analyses must not be stored, got %d", len(n))
	}
}

func TestServiceTimeout(t *testing.T) {
	svc := newTestService(t, WithTimeout(time.Nanosecond))

	_, err := svc.Analyze(context.Background(), clickWAV(t, 120, 5), "slow.wav")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %v", err)
	}
	if KindOf(err) != KindTimeout {
		t.Errorf("Expected timeout kind, got %s", KindOf(err))
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout in chain, got %v", err)
	}
}

func TestServiceWithoutHistory(t *testing.T) {
	svc, err := NewService(WithoutHistory(), WithLogger(nopLogger{}))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer svc.Close()

	w := &audio.Waveform{Samples: synth.ClickTrack(120, 8, 44100), SampleRate: 44100}
	a, err := svc.AnalyzeWaveform(context.Background(), w, "memory")
	if err != nil {
		t.Fatalf("AnalyzeWaveform failed: %v", err)
	}
	if a.ID == "" {
		t.Error("Expected an ID even without history")
	}

	if _, err := svc.GetAnalysis(a.ID); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Expected ErrHistoryDisabled, got %v", err)
	}
	if _, err := svc.ListAnalyses(10); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Expected ErrHistoryDisabled, got %v", err)
	}
	if err := svc.DeleteAnalysis(a.ID); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Expected ErrHistoryDisabled, got %v", err)
	}
}

func TestServiceListAndDelete(t *testing.T) {
	svc := newTestService(t)

	var ids []string
	for _, bpm := range []float64{100, 120} {
		w := &audio.Waveform{Samples: synth.ClickTrack(bpm, 8, 44100), SampleRate: 44100}
		a, err := svc.AnalyzeWaveform(context.Background(), w, "clicks")
		if err != nil {
			t.Fatalf("AnalyzeWaveform(%v) failed: %v", bpm, err)
		}
		ids = append(ids, a.ID)
	}

	list, err := svc.ListAnalyses(10)
	if err != nil {
		t.Fatalf("ListAnalyses failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 analyses, got %d", len(list))
	}
	if list[0].ID != ids[1] {
		t.Errorf("Expected newest first")
	}

	if err := svc.DeleteAnalysis(ids[0]); err != nil {
		t.Fatalf("DeleteAnalysis failed: %v", err)
	}
	if _, err := svc.GetAnalysis(ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.DeleteAnalysis(ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestServicePatternAndMIDI(t *testing.T) {
	svc := newTestService(t, WithoutHistory())

	a := &Analysis{
		Tempo:      120,
		BeatTimes:  []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5},
		SwingRatio: 0.66,
	}

	plan := svc.GeneratePattern(a.PatternRequest(pattern.HiHat, 100, false))
	if plan.Count(pattern.ClosedHiHat) == 0 {
		t.Fatal("Expected hi-hat notes in HiHat pattern")
	}

	data, err := svc.RenderMIDI(plan)
	if err != nil {
		t.Fatalf("RenderMIDI failed: %v", err)
	}
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Generated MIDI does not parse: %v", err)
	}
	if len(s.Tracks) != 2 {
		t.Errorf("Expected 2 tracks, got %d", len(s.Tracks))
	}

	swung := svc.GeneratePattern(a.PatternRequest(pattern.HiHat, 100, true))
	if swung.Len() != plan.Len() {
		t.Errorf("Swing changed note count: %d vs %d", swung.Len(), plan.Len())
	}
}

func TestAnalysisErrorClassification(t *testing.T) {
	tests := []struct {
		err  error
		kind ErrorKind
	}{
		{ErrDecode, KindBadInput},
		{ErrInsufficientBeats, KindBadInput},
		{context.DeadlineExceeded, KindTimeout},
		{ErrQueueFull, KindTimeout},
		{errors.New("disk on fire"), KindInternal},
	}
	for _, tt := range tests {
		if got := newAnalysisError(tt.err).Kind; got != tt.kind {
			t.Errorf("newAnalysisError(%v).Kind = %s, want %s", tt.err, got, tt.kind)
		}
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("KindOf on plain error should be internal")
	}
}
