package beatcraft

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/audio"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/midi"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pattern"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pipeline"
	"github.com/himanishpuri/BeatCraft/pkg/logger"
	"github.com/himanishpuri/BeatCraft/pkg/utils"
)

// beatService is the default implementation of the Service interface.
type beatService struct {
	storage Storage
	log     Logger
	config  *Config
	pool    *Pool
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	// Set default logger if none provided
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	// Create or use provided storage
	var stor Storage
	var err error
	switch {
	case !cfg.History:
	case cfg.Storage != nil:
		stor = cfg.Storage
	default:
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &beatService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
		pool:    NewPool(cfg.Workers, cfg.QueueSize, cfg.Logger),
	}, nil
}

func (s *beatService) pipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Load = audio.LoadOptions{
		TargetSampleRate: s.config.SampleRate,
		MaxDuration:      s.config.MaxDuration,
	}
	opts.Beat.Tightness = s.config.Tightness
	return opts
}

// Analyze decodes data and extracts tempo, beats and swing.
func (s *beatService) Analyze(ctx context.Context, data []byte, source string) (*Analysis, error) {
	s.log.Infof("Analyzing %s (%d bytes)", source, len(data))

	return s.analyze(ctx, source, "", func(ctx context.Context) (*pipeline.Result, error) {
		return pipeline.Analyze(ctx, data, s.pipelineOptions())
	})
}

// AnalyzeWaveform runs the analysis on already decoded samples.
func (s *beatService) AnalyzeWaveform(ctx context.Context, w *audio.Waveform, source string) (*Analysis, error) {
	s.log.Infof("Analyzing waveform %s (%.2fs)", source, w.Seconds())

	return s.analyze(ctx, source, "", func(ctx context.Context) (*pipeline.Result, error) {
		return pipeline.Run(ctx, w, s.pipelineOptions())
	})
}

// AnalyzeYouTube downloads a video's audio into the temp dir and analyses it.
func (s *beatService) AnalyzeYouTube(ctx context.Context, youtubeURL string) (*Analysis, error) {
	videoID, err := utils.ExtractYouTubeID(youtubeURL)
	if err != nil {
		return nil, &AnalysisError{Stage: "download", Kind: KindBadInput, Err: err}
	}

	s.log.Infof("Downloading audio for YouTube video %s", videoID)
	path, err := audio.DownloadYouTubeAudio(ctx, youtubeURL, filepath.Join(s.config.TempDir, "beatcraft-yt"))
	if err != nil {
		return nil, &AnalysisError{Stage: "download", Kind: KindInternal, Err: err}
	}
	defer utils.DeleteFile(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &AnalysisError{Stage: "download", Kind: KindInternal, Err: err}
	}

	return s.analyze(ctx, youtubeURL, videoID, func(ctx context.Context) (*pipeline.Result, error) {
		return pipeline.Analyze(ctx, data, s.pipelineOptions())
	})
}

func (s *beatService) analyze(
	ctx context.Context,
	source, youtubeID string,
	run func(context.Context) (*pipeline.Result, error),
) (*Analysis, error) {
	start := time.Now()

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	// 1. Run the pipeline on a pool worker
	var res *pipeline.Result
	err := s.pool.Do(ctx, func(ctx context.Context) error {
		r, err := run(ctx)
		res = r
		return err
	})
	if err != nil {
		ae := newAnalysisError(err)
		if ae.Kind == KindInternal {
			s.log.Errorf("Analysis of %s failed: %v", source, ae)
		} else {
			s.log.Warnf("Analysis of %s failed: %v", source, ae)
		}
		return nil, ae
	}
	s.log.Infof("Detected %.2f BPM, %d beats (%s), swing %.3f",
		res.Tempo, len(res.BeatTimes), res.Strategy, res.SwingRatio)

	a := &Analysis{
		ID:         utils.GenerateUUID(),
		Source:     source,
		YouTubeID:  youtubeID,
		Tempo:      res.Tempo,
		BeatTimes:  res.BeatTimes,
		SwingRatio: res.SwingRatio,
		Strategy:   string(res.Strategy),
		DurationMs: int(res.Seconds * 1000),
		CreatedAt:  time.Now(),
	}

	// 2. Persist the result
	if s.storage != nil {
		if _, err := s.storage.SaveAnalysis(a); err != nil {
			ae := &AnalysisError{Stage: "store", Kind: KindInternal, Err: err}
			s.log.Errorf("Failed to store analysis of %s: %v", source, err)
			return nil, ae
		}
	}

	s.log.Infof("Analysis %s done in %s", a.ID, time.Since(start).Round(time.Millisecond))
	return a, nil
}

// GeneratePattern lays a drum template over the requested beats.
func (s *beatService) GeneratePattern(req PatternRequest) *pattern.Plan {
	plan := pattern.Generate(req.BeatTimes, req.Tempo, req.Template, req.Velocity, req.SwingRatio)
	s.log.Debugf("Generated %s pattern: %d notes over %d beats", req.Template, plan.Len(), len(req.BeatTimes))
	return plan
}

// RenderMIDI serializes plan as a Standard MIDI File.
func (s *beatService) RenderMIDI(plan *pattern.Plan) ([]byte, error) {
	return midi.Encode(plan, midi.DefaultOptions())
}

func (s *beatService) GetAnalysis(id string) (*Analysis, error) {
	if s.storage == nil {
		return nil, ErrHistoryDisabled
	}
	return s.storage.GetAnalysis(id)
}

// ListAnalyses returns stored analyses, newest first.
func (s *beatService) ListAnalyses(limit int) ([]Analysis, error) {
	if s.storage == nil {
		return nil, ErrHistoryDisabled
	}
	return s.storage.ListAnalyses(limit)
}

func (s *beatService) DeleteAnalysis(id string) error {
	if s.storage == nil {
		return ErrHistoryDisabled
	}
	return s.storage.DeleteAnalysis(id)
}

func (s *beatService) Stats() Stats {
	stats := s.pool.Stats()
	if s.storage != nil {
		count, err := s.storage.CountAnalyses()
		if err != nil {
			s.log.Warnf("Failed to count stored analyses: %v", err)
		}
		stats.StoredAnalyses = count
	}
	return stats
}

// Close stops the worker pool and releases the store.
func (s *beatService) Close() error {
	s.pool.Close()
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
