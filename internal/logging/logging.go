// Package logging builds the per-component loggers used across logbook.
//
// Every component gets a stdlib *log.Logger with a "[component] " prefix. All
// of them write through one shared sink, which Configure points at stderr, a
// rotated file or nowhere.
package logging

import (
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	EnvLogFile  = "LOGBOOK_LOG_FILE"
	EnvLogQuiet = "LOGBOOK_LOG_QUIET"
)

// Config selects the sink.
type Config struct {
	// File, when set, receives logs with size based rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Quiet discards all log output.
	Quiet bool
}

// DefaultConfig logs to stderr.
func DefaultConfig() Config {
	return Config{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28}
}

// sink is shared by every logger so Configure applies to loggers created
// before it was called.
type sink struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *sink) swap(w io.Writer, c io.Closer) io.Closer {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.c
	s.w, s.c = w, c
	return old
}

var out = &sink{w: os.Stderr}

// New returns a logger for component.
func New(component string) *log.Logger {
	return log.New(out, "["+component+"] ", log.LstdFlags)
}

// Configure points the shared sink at the destination described by cfg after
// applying environment overrides. A previously opened log file is closed.
func Configure(cfg Config) {
	applyEnvOverrides(&cfg)

	var (
		w io.Writer = os.Stderr
		c io.Closer
	)
	switch {
	case cfg.Quiet:
		w = io.Discard
	case cfg.File != "":
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w, c = lj, lj
	}

	if old := out.swap(w, c); old != nil {
		_ = old.Close()
	}
}

// Close releases the log file, if any, and reverts to stderr.
func Close() error {
	if old := out.swap(os.Stderr, nil); old != nil {
		return old.Close()
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.File = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogQuiet)); ok {
		cfg.Quiet = v
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
