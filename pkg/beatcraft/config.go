package beatcraft

import (
	"os"
	"runtime"
	"time"
)

type Config struct {
	DBPath      string
	TempDir     string
	SampleRate  int
	MaxDuration time.Duration
	Timeout     time.Duration // per analysis request
	Workers     int
	QueueSize   int
	Tightness   float64
	History     bool // persist analyses
	Logger      Logger
	Storage     Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

// WithMaxDuration caps how much of each input is analysed.
func WithMaxDuration(d time.Duration) Option {
	return func(c *Config) {
		c.MaxDuration = d
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func WithQueueSize(n int) Option {
	return func(c *Config) {
		c.QueueSize = n
	}
}

// WithTightness sets how strongly the beat tracker sticks to the tempo.
func WithTightness(t float64) Option {
	return func(c *Config) {
		c.Tightness = t
	}
}

// WithoutHistory disables the analysis store entirely.
func WithoutHistory() Option {
	return func(c *Config) {
		c.History = false
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:      "beatcraft.sqlite3",
		TempDir:     os.TempDir(),
		SampleRate:  44100,
		MaxDuration: 30 * time.Second,
		Timeout:     30 * time.Second,
		Workers:     max(1, runtime.NumCPU()-1),
		Tightness:   100,
		History:     true,
		Logger:      nil,
	}
}
