//go:build !js && !wasm
// +build !js,!wasm

package beatcraft

import (
	"errors"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/storage"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) SaveAnalysis(a *Analysis) (string, error) {
	rec := toRecord(a)
	id, err := s.db.SaveAnalysis(rec)
	if err != nil {
		return "", err
	}
	a.ID = id
	a.CreatedAt = rec.CreatedAt
	return id, nil
}

func (s *storageAdapter) GetAnalysis(id string) (*Analysis, error) {
	rec, err := s.db.GetAnalysis(id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	a := fromRecord(rec)
	return &a, nil
}

func (s *storageAdapter) ListAnalyses(limit int) ([]Analysis, error) {
	recs, err := s.db.ListAnalyses(limit)
	if err != nil {
		return nil, err
	}

	out := make([]Analysis, len(recs))
	for i := range recs {
		out[i] = fromRecord(&recs[i])
	}
	return out, nil
}

func (s *storageAdapter) DeleteAnalysis(id string) error {
	return mapNotFound(s.db.DeleteAnalysis(id))
}

func (s *storageAdapter) CountAnalyses() (int64, error) {
	return s.db.CountAnalyses()
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func toRecord(a *Analysis) *storage.Analysis {
	return &storage.Analysis{
		ID:         a.ID,
		SourceName: a.Source,
		YouTubeID:  a.YouTubeID,
		Tempo:      a.Tempo,
		SwingRatio: a.SwingRatio,
		BeatTimes:  a.BeatTimes,
		Strategy:   a.Strategy,
		DurationMs: a.DurationMs,
		CreatedAt:  a.CreatedAt,
	}
}

func fromRecord(r *storage.Analysis) Analysis {
	return Analysis{
		ID:         r.ID,
		Source:     r.SourceName,
		YouTubeID:  r.YouTubeID,
		Tempo:      r.Tempo,
		SwingRatio: r.SwingRatio,
		BeatTimes:  r.BeatTimes,
		Strategy:   r.Strategy,
		DurationMs: r.DurationMs,
		CreatedAt:  r.CreatedAt,
	}
}
