//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/himanishpuri/BeatCraft/internal/synth"
	"github.com/himanishpuri/BeatCraft/pkg/beatcraft"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}

func newTestServer(t *testing.T, maxUpload int64) http.Handler {
	t.Helper()
	svc, err := beatcraft.NewService(
		beatcraft.WithDBPath(filepath.Join(t.TempDir(), "server.sqlite3")),
		beatcraft.WithLogger(nopLogger{}),
		beatcraft.WithWorkers(2),
	)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	s := NewServer(svc, &ServerConfig{
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: maxUpload,
	})
	s.log = nopLogger{}
	return s.setupRoutes()
}

func uploadRequest(t *testing.T, target, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func clickWAV(t *testing.T) []byte {
	t.Helper()
	data, err := synth.WAVBytes(t.TempDir(), synth.ClickTrack(120, 10, 44100), 44100)
	if err != nil {
		t.Fatalf("Failed to build WAV: %v", err)
	}
	return data
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpoint(t *testing.T) {
	h := newTestServer(t, 0)

	rec := serve(h, uploadRequest(t, "/api/analyze", "click.wav", clickWAV(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got AnalysisDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if math.Abs(got.Tempo-120) > 5 {
		t.Errorf("Expected ~120 BPM, got %.2f", got.Tempo)
	}
	if len(got.BeatTimes) < 8 {
		t.Errorf("Expected at least 8 beats, got %d", len(got.BeatTimes))
	}
	if got.Source != "click.wav" {
		t.Errorf("Expected source click.wav, got %q", got.Source)
	}

	// The analysis is now in the history.
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/analyses/"+got.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected stored analysis, got %d", rec.Code)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/analyses/"+got.ID+"/midi?pattern_type=full", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected MIDI, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := smf.ReadFrom(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Errorf("Stored analysis MIDI does not parse: %v", err)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/analyses", nil))
	var list ListAnalysesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || list.Count != 1 {
		t.Fatalf("Expected one listed analysis, got %s (%v)", rec.Body.String(), err)
	}

	rec = serve(h, httptest.NewRequest(http.MethodDelete, "/api/analyses/"+got.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected delete to succeed, got %d", rec.Code)
	}
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/analyses/"+got.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestAnalyzeMIDIEndpoint(t *testing.T) {
	h := newTestServer(t, 0)

	req := uploadRequest(t, "/api/analyze/midi?pattern_type=hihat&apply_swing=true&velocity=90", "click.wav", clickWAV(t))
	rec := serve(h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/midi" {
		t.Errorf("Expected audio/midi, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "drum_pattern_") {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}

	s, err := smf.ReadFrom(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("MIDI does not parse: %v", err)
	}
	if len(s.Tracks) != 2 {
		t.Errorf("Expected 2 tracks, got %d", len(s.Tracks))
	}
}

func TestUploadValidation(t *testing.T) {
	silence, err := synth.WAVBytes(t.TempDir(), make([]float64, 44100), 44100)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		maxUpload int64
		target    string
		data      []byte
		want      int
	}{
		{"text file", 0, "/api/analyze", []byte("hello, this is not audio at all"), http.StatusUnsupportedMediaType},
		{"too large", 1024, "/api/analyze", clickWAV(t), http.StatusRequestEntityTooLarge},
		{"silence", 0, "/api/analyze", silence, http.StatusUnprocessableEntity},
		{"bad velocity", 0, "/api/analyze/midi?velocity=loud", clickWAV(t), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.maxUpload)
			rec := serve(h, uploadRequest(t, tt.target, "input.bin", tt.data))
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestMissingFile(t *testing.T) {
	h := newTestServer(t, 0)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("other", "x")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if rec := serve(h, req); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestPatternEndpoint(t *testing.T) {
	h := newTestServer(t, 0)

	body := `{"beat_times":[0,0.5,1,1.5,2,2.5,3,3.5],"tempo":120,"pattern_type":"full","velocity":100}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/pattern", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got PatternResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if got.Template != "full" || got.Tempo != 120 {
		t.Errorf("Unexpected pattern header: %+v", got)
	}
	if got.Count == 0 || got.Count != len(got.Notes) {
		t.Errorf("Expected notes, got count %d with %d notes", got.Count, len(got.Notes))
	}
	for i := 1; i < len(got.Notes); i++ {
		if got.Notes[i].Onset < got.Notes[i-1].Onset {
			t.Fatalf("Notes not ordered at %d", i)
		}
	}

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/api/pattern?format=midi", strings.NewReader(body)))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "audio/midi" {
		t.Fatalf("Expected MIDI response, got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestPatternEndpointErrors(t *testing.T) {
	h := newTestServer(t, 0)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `beats please`},
		{"zero tempo", `{"beat_times":[0,0.5],"tempo":0}`},
		{"unordered beats", `{"beat_times":[1,0.5],"tempo":120}`},
		{"negative beat", `{"beat_times":[-1,0.5],"tempo":120}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/pattern", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestRoutingAndCORS(t *testing.T) {
	h := newTestServer(t, 0)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/health/metrics", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodGet, "/api/analyze", http.StatusMethodNotAllowed},
		{http.MethodPut, "/api/analyses", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/analyses/", http.StatusBadRequest},
		{http.MethodGet, "/api/analyses/missing", http.StatusNotFound},
		{http.MethodGet, "/api/analyses/missing/midi", http.StatusNotFound},
		{http.MethodOptions, "/api/analyze", http.StatusNoContent},
	}
	for _, tt := range tests {
		rec := serve(h, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.want, rec.Code)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("%s %s: missing CORS header", tt.method, tt.path)
		}
	}
}

func TestSniffAudioType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"wav", []byte("RIFF\x24\x00\x00\x00WAVEfmt "), "audio/wave"},
		{"id3", []byte("ID3\x04\x00\x00\x00\x00\x00\x00"), "audio/mpeg"},
		{"frame sync", []byte{0xFF, 0xFB, 0x90, 0x00, 0x01, 0x02}, "audio/mpeg"},
		{"aiff", []byte("FORM\x00\x00\x00\x00AIFFCOMM"), "audio/aiff"},
		{"text", []byte("plain text"), "text/plain"},
	}
	for _, tt := range tests {
		if got := sniffAudioType(tt.data); got != tt.want {
			t.Errorf("%s: sniffAudioType = %q, want %q", tt.name, got, tt.want)
		}
	}
}
