package beatcraft

import (
	"context"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/audio"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pattern"
)

type Service interface {
	Analyze(ctx context.Context, data []byte, source string) (*Analysis, error)
	AnalyzeWaveform(ctx context.Context, w *audio.Waveform, source string) (*Analysis, error)
	AnalyzeYouTube(ctx context.Context, youtubeURL string) (*Analysis, error)
	GeneratePattern(req PatternRequest) *pattern.Plan
	RenderMIDI(plan *pattern.Plan) ([]byte, error)
	GetAnalysis(id string) (*Analysis, error)
	ListAnalyses(limit int) ([]Analysis, error)
	DeleteAnalysis(id string) error
	Stats() Stats
	Close() error
}

type Storage interface {
	SaveAnalysis(a *Analysis) (string, error)
	GetAnalysis(id string) (*Analysis, error)
	ListAnalyses(limit int) ([]Analysis, error)
	DeleteAnalysis(id string) error
	CountAnalyses() (int64, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
