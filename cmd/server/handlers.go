//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft/pattern"
	"github.com/himanishpuri/BeatCraft/pkg/logger"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service beatcraft.Service
	config  *ServerConfig
	log     beatcraft.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	SampleRate     int
	AllowedOrigins []string
	MaxUploadBytes int64
	LogRequests    bool
}

// NewServer creates a new server instance
func NewServer(service beatcraft.Service, config *ServerConfig) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = MaxUploadBytes
	}
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().Named("server"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondServiceError maps a service error to a status code.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, beatcraft.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, beatcraft.ErrHistoryDisabled), errors.Is(err, beatcraft.ErrClosed):
		status = http.StatusServiceUnavailable
	default:
		switch beatcraft.KindOf(err) {
		case beatcraft.KindBadInput:
			status = http.StatusUnprocessableEntity
		case beatcraft.KindTimeout:
			status = http.StatusGatewayTimeout
		}
	}

	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    status,
	}
	var ae *beatcraft.AnalysisError
	if errors.As(err, &ae) {
		resp.Stage = ae.Stage
	}
	s.respondJSON(w, status, resp)
}

// respondMIDI writes an SMF attachment.
func (s *Server) respondMIDI(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Errorf("Failed to write MIDI response: %v", err)
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "BeatCraft API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":         "GET /health",
			"metrics":        "GET /api/health/metrics",
			"analyze":        "POST /api/analyze",
			"analyzeMidi":    "POST /api/analyze/midi",
			"pattern":        "POST /api/pattern",
			"listAnalyses":   "GET /api/analyses",
			"getAnalysis":    "GET /api/analyses/{id}",
			"deleteAnalysis": "DELETE /api/analyses/{id}",
			"analysisMidi":   "GET /api/analyses/{id}/midi",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		SampleRate:   s.config.SampleRate,
		Stats:        s.service.Stats(),
	})
}

// readUpload reads the multipart "file" field, enforcing the size limit
// and the audio type whitelist. It writes the error response itself.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	limit := s.config.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if isTooLarge(err) {
			s.respondError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(limit))
			return nil, "", false
		}
		s.log.Warnf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return nil, "", false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.log.Errorf("Failed to read upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return nil, "", false
	}
	if int64(len(data)) > limit {
		s.respondError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(limit))
		return nil, "", false
	}

	mime := sniffAudioType(data)
	if !slices.Contains(allowedAudioTypes, mime) {
		s.log.Warnf("Rejected upload %s with type %s", header.Filename, mime)
		s.respondError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("Invalid file type %s. Must be one of: %s", mime, strings.Join(allowedAudioTypes, ", ")))
		return nil, "", false
	}

	return data, header.Filename, true
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func tooLargeMessage(limit int64) string {
	return fmt.Sprintf("File too large. Maximum size allowed is %dMB", limit>>20)
}

// sniffAudioType detects the MIME type of data from its content. MPEG
// audio without an ID3 tag is recognised by its frame sync.
func sniffAudioType(data []byte) string {
	mime := http.DetectContentType(data)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "application/octet-stream" && len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return "audio/mpeg"
	}
	return mime
}

// handleAnalyze handles POST /api/analyze (multipart file upload)
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	data, name, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	a, err := s.service.Analyze(r.Context(), data, name)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, toAnalysisDTO(a))
}

// handleAnalyzeMIDI handles POST /api/analyze/midi
func (s *Server) handleAnalyzeMIDI(w http.ResponseWriter, r *http.Request) {
	req, err := parsePatternQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, name, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	a, err := s.service.Analyze(r.Context(), data, name)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.writeAnalysisMIDI(w, a, req)
}

// patternQuery holds the pattern parameters of a MIDI request.
type patternQuery struct {
	template   pattern.Template
	velocity   int
	applySwing bool
}

func parsePatternQuery(q url.Values) (patternQuery, error) {
	pq := patternQuery{
		template: pattern.ParseTemplate(q.Get("pattern_type")),
		velocity: DefaultVelocity,
	}

	if v := q.Get("velocity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return pq, fmt.Errorf("invalid velocity %q", v)
		}
		pq.velocity = n
	}
	if v := q.Get("apply_swing"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return pq, fmt.Errorf("invalid apply_swing %q", v)
		}
		pq.applySwing = b
	}
	return pq, nil
}

func (s *Server) writeAnalysisMIDI(w http.ResponseWriter, a *beatcraft.Analysis, pq patternQuery) {
	plan := s.service.GeneratePattern(a.PatternRequest(pq.template, pq.velocity, pq.applySwing))
	midi, err := s.service.RenderMIDI(plan)
	if err != nil {
		s.log.Errorf("Failed to render MIDI for %s: %v", a.ID, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to render MIDI")
		return
	}

	s.log.Infof("Rendered %s pattern for %s: %d notes", pq.template, a.ID, plan.Len())
	s.respondMIDI(w, fmt.Sprintf("drum_pattern_%s.mid", a.ID), midi)
}

// handlePattern handles POST /api/pattern
func (s *Server) handlePattern(w http.ResponseWriter, r *http.Request) {
	var req PatternRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&req); err != nil {
		s.log.Warnf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sreq := req.toService()
	plan := s.service.GeneratePattern(sreq)

	if r.URL.Query().Get("format") == "midi" {
		midi, err := s.service.RenderMIDI(plan)
		if err != nil {
			s.log.Errorf("Failed to render MIDI: %v", err)
			s.respondError(w, http.StatusInternalServerError, "Failed to render MIDI")
			return
		}
		s.respondMIDI(w, "drum_pattern.mid", midi)
		return
	}

	s.respondJSON(w, http.StatusOK, toPatternResponse(sreq.Template, plan))
}

// handleListAnalyses handles GET /api/analyses
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	analyses, err := s.service.ListAnalyses(limit)
	if err != nil {
		s.log.Errorf("Failed to list analyses: %v", err)
		s.respondServiceError(w, err)
		return
	}

	dtos := make([]AnalysisDTO, len(analyses))
	for i := range analyses {
		dtos[i] = toAnalysisDTO(&analyses[i])
	}

	s.respondJSON(w, http.StatusOK, ListAnalysesResponse{
		Analyses: dtos,
		Count:    len(dtos),
	})
}

// handleGetAnalysis handles GET /api/analyses/{id}
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	a, err := s.service.GetAnalysis(id)
	if err != nil {
		s.log.Warnf("Analysis not found: %s", id)
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, toAnalysisDTO(a))
}

// handleDeleteAnalysis handles DELETE /api/analyses/{id}
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteAnalysis(id); err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.log.Infof("Deleted analysis %s", id)
	s.respondJSON(w, http.StatusOK, DeleteAnalysisResponse{
		Message: "Analysis deleted successfully",
		ID:      id,
	})
}

// handleAnalysisMIDI handles GET /api/analyses/{id}/midi
func (s *Server) handleAnalysisMIDI(w http.ResponseWriter, r *http.Request, id string) {
	pq, err := parsePatternQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := s.service.GetAnalysis(id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.writeAnalysisMIDI(w, a, pq)
}

// handleAnalyzeRoute routes requests to /api/analyze
func (s *Server) handleAnalyzeRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleAnalyze(w, r)
}

// handleAnalyzeMIDIRoute routes requests to /api/analyze/midi
func (s *Server) handleAnalyzeMIDIRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleAnalyzeMIDI(w, r)
}

// handlePatternRoute routes requests to /api/pattern
func (s *Server) handlePatternRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handlePattern(w, r)
}

// handleAnalyses routes requests to /api/analyses
func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleListAnalyses(w, r)
}

// handleAnalysis routes requests to /api/analyses/{id} and /api/analyses/{id}/midi
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(r.URL.Path[len("/api/analyses/"):], "/")
	if rest == "" {
		s.respondError(w, http.StatusBadRequest, "Analysis ID required")
		return
	}

	id, sub, _ := strings.Cut(rest, "/")
	switch {
	case sub == "midi" && r.Method == http.MethodGet:
		s.handleAnalysisMIDI(w, r, id)
	case sub != "":
		http.NotFound(w, r)
	case r.Method == http.MethodGet:
		s.handleGetAnalysis(w, r, id)
	case r.Method == http.MethodDelete:
		s.handleDeleteAnalysis(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
