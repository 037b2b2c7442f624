//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"fmt"
	"math"
	"time"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pattern"
)

const (
	// MaxUploadBytes is the largest accepted audio upload (50MB).
	MaxUploadBytes = 50 << 20

	// DefaultVelocity is used when a request does not name one.
	DefaultVelocity = 100

	// MaxPatternBeats bounds the beat list accepted by POST /api/pattern.
	MaxPatternBeats = 20000
)

// allowedAudioTypes lists the sniffed MIME types accepted for analysis.
var allowedAudioTypes = []string{
	"audio/mpeg",
	"audio/wav",
	"audio/x-wav",
	"audio/vnd.wave",
	"audio/wave",
	"audio/aiff",
	"audio/x-aiff",
}

// AnalysisDTO represents an analysis in API responses
type AnalysisDTO struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	YouTubeID  string    `json:"youtube_id,omitempty"`
	Tempo      float64   `json:"tempo"`
	BeatTimes  []float64 `json:"beat_times"`
	SwingRatio float64   `json:"swing_ratio"`
	Strategy   string    `json:"strategy"`
	DurationMs int       `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

func toAnalysisDTO(a *beatcraft.Analysis) AnalysisDTO {
	beats := a.BeatTimes
	if beats == nil {
		beats = []float64{}
	}
	return AnalysisDTO{
		ID:         a.ID,
		Source:     a.Source,
		YouTubeID:  a.YouTubeID,
		Tempo:      a.Tempo,
		BeatTimes:  beats,
		SwingRatio: a.SwingRatio,
		Strategy:   a.Strategy,
		DurationMs: a.DurationMs,
		CreatedAt:  a.CreatedAt,
	}
}

// ListAnalysesResponse is the response for GET /api/analyses
type ListAnalysesResponse struct {
	Analyses []AnalysisDTO `json:"analyses"`
	Count    int           `json:"count"`
}

// DeleteAnalysisResponse is the response for DELETE /api/analyses/{id}
type DeleteAnalysisResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// PatternRequest is the request body for POST /api/pattern
type PatternRequest struct {
	BeatTimes   []float64 `json:"beat_times"`
	Tempo       float64   `json:"tempo"`
	PatternType string    `json:"pattern_type,omitempty"`
	Velocity    *int      `json:"velocity,omitempty"`
	SwingRatio  float64   `json:"swing_ratio,omitempty"`
}

// Validate checks if the request is valid
func (r *PatternRequest) Validate() error {
	if r.Tempo <= 0 || math.IsNaN(r.Tempo) || math.IsInf(r.Tempo, 0) {
		return fmt.Errorf("tempo must be a positive number")
	}
	if len(r.BeatTimes) > MaxPatternBeats {
		return fmt.Errorf("too many beats: %d (maximum: %d)", len(r.BeatTimes), MaxPatternBeats)
	}
	for i, t := range r.BeatTimes {
		if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("beat_times[%d] is not a valid time", i)
		}
		if i > 0 && t <= r.BeatTimes[i-1] {
			return fmt.Errorf("beat_times must be strictly increasing (index %d)", i)
		}
	}
	return nil
}

func (r *PatternRequest) toService() beatcraft.PatternRequest {
	velocity := DefaultVelocity
	if r.Velocity != nil {
		velocity = *r.Velocity
	}
	return beatcraft.PatternRequest{
		BeatTimes:  r.BeatTimes,
		Tempo:      r.Tempo,
		Template:   pattern.ParseTemplate(r.PatternType),
		Velocity:   velocity,
		SwingRatio: r.SwingRatio,
	}
}

// NoteDTO represents a single drum hit in API responses
type NoteDTO struct {
	Onset    float64 `json:"onset"`
	Duration float64 `json:"duration"`
	Voice    string  `json:"voice"`
	Key      uint8   `json:"key"`
	Velocity int     `json:"velocity"`
}

// PatternResponse is the JSON response for POST /api/pattern
type PatternResponse struct {
	Tempo    float64   `json:"tempo"`
	Template string    `json:"pattern_type"`
	Notes    []NoteDTO `json:"notes"`
	Count    int       `json:"count"`
}

func toPatternResponse(tmpl pattern.Template, plan *pattern.Plan) PatternResponse {
	notes := plan.Notes()
	dtos := make([]NoteDTO, len(notes))
	for i, n := range notes {
		dtos[i] = NoteDTO{
			Onset:    n.Onset,
			Duration: n.Duration,
			Voice:    n.Voice.String(),
			Key:      n.Voice.MIDINote(),
			Velocity: n.Velocity,
		}
	}
	return PatternResponse{
		Tempo:    plan.Tempo(),
		Template: tmpl.String(),
		Notes:    dtos,
		Count:    len(dtos),
	}
}

// MetricsResponse provides server health and worker pool metrics
type MetricsResponse struct {
	Status       string          `json:"status"`
	DatabasePath string          `json:"database_path,omitempty"`
	SampleRate   int             `json:"sample_rate"`
	Stats        beatcraft.Stats `json:"stats"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
	Stage   string `json:"stage,omitempty"`
}
