package beatcraft

import (
	"time"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pattern"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/swing"
)

// Analysis is the result of analysing one input.
type Analysis struct {
	ID         string    // UUID
	Source     string    // file name or URL the audio came from
	YouTubeID  string    // YouTube video ID (if available)
	Tempo      float64   // BPM
	BeatTimes  []float64 // seconds, strictly increasing
	SwingRatio float64   // raw estimator output, not clamped
	Strategy   string    // "dp" or "peak_fallback"
	DurationMs int       // length of the analysed signal
	CreatedAt  time.Time
}

// PatternRequest describes a drum pattern to generate.
type PatternRequest struct {
	BeatTimes  []float64
	Tempo      float64
	Template   pattern.Template
	Velocity   int
	SwingRatio float64 // clamped to [0.5, 0.75]; zero means straight
}

// PatternRequest builds a request over the analysis beats. With applySwing
// the detected swing is reapplied; otherwise the beats are used straight.
func (a *Analysis) PatternRequest(tmpl pattern.Template, velocity int, applySwing bool) PatternRequest {
	ratio := swing.Straight
	if applySwing {
		ratio = a.SwingRatio
	}
	return PatternRequest{
		BeatTimes:  a.BeatTimes,
		Tempo:      a.Tempo,
		Template:   tmpl,
		Velocity:   velocity,
		SwingRatio: ratio,
	}
}

// Stats is a snapshot of the worker pool and store.
type Stats struct {
	Workers        int   `json:"workers"`
	Queued         int64 `json:"queued"`
	Running        int64 `json:"running"`
	Completed      int64 `json:"completed"`
	Failed         int64 `json:"failed"`
	TimedOut       int64 `json:"timed_out"`
	StoredAnalyses int64 `json:"stored_analyses"`
}
