//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/BeatCraft/pkg/beatcraft"
	"github.com/himanishpuri/BeatCraft/pkg/logger"
)

var (
	port           int
	dbPath         string
	tempDir        string
	sampleRate     int
	allowedOrigins string
	timeout        time.Duration
	workers        int
	queueSize      int
	maxDuration    time.Duration
	noHistory      bool
	logRequests    bool
	logLevel       string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("BEATCRAFT_DB_PATH", "beatcraft.sqlite3"), "Path to SQLite database")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("BEATCRAFT_TEMP_DIR", os.TempDir()), "Temporary directory")
	flag.IntVar(&sampleRate, "rate", 44100, "Analysis sample rate")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.DurationVar(&timeout, "timeout", getEnvDuration("BEATCRAFT_TIMEOUT", 30*time.Second), "Per-request analysis timeout")
	flag.IntVar(&workers, "workers", getEnvInt("BEATCRAFT_WORKERS", 0), "Analysis workers (0 = NumCPU-1)")
	flag.IntVar(&queueSize, "queue", 0, "Analysis queue size (0 = 2x workers)")
	flag.DurationVar(&maxDuration, "max-duration", 30*time.Second, "Maximum analysed audio length")
	flag.BoolVar(&noHistory, "no-history", false, "Do not store analyses")
	flag.BoolVar(&logRequests, "log-requests", false, "Log every HTTP request")
	flag.StringVar(&logLevel, "log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func main() {
	flag.Parse()

	log := logger.GetLogger()
	if level, ok := logger.ParseLevel(logLevel); ok {
		log.SetLevel(level)
	}

	// Parse allowed origins
	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	opts := []beatcraft.Option{
		beatcraft.WithDBPath(dbPath),
		beatcraft.WithTempDir(tempDir),
		beatcraft.WithSampleRate(sampleRate),
		beatcraft.WithTimeout(timeout),
		beatcraft.WithWorkers(workers),
		beatcraft.WithQueueSize(queueSize),
		beatcraft.WithMaxDuration(maxDuration),
		beatcraft.WithLogger(log.Named("service")),
	}
	if noHistory {
		opts = append(opts, beatcraft.WithoutHistory())
	}

	// Create BeatCraft service
	service, err := beatcraft.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	dbShown := dbPath
	if noHistory {
		dbShown = ""
	}

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbShown,
		SampleRate:     sampleRate,
		AllowedOrigins: origins,
		MaxUploadBytes: MaxUploadBytes,
		LogRequests:    logRequests,
	}

	server := NewServer(service, config)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
