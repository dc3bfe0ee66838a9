// Package logging builds the slog loggers used by the command line harness.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the level, destination and rotation of the log.
type Config struct {
	Level      string `yaml:"level"`      // DEBUG, INFO, WARN, ERROR or NONE
	Filename   string `yaml:"filename"`   // "" or "-" for stderr
	MaxSize    int    `yaml:"maxSize"`    // megabytes before rotation
	MaxBackups int    `yaml:"maxBackups"` // rotated files kept
	MaxAge     int    `yaml:"maxAge"`     // days rotated files are kept
	Compress   bool   `yaml:"compress"`
	JSON       bool   `yaml:"json"`
}

// PresetConfigStderr logs at INFO to stderr.
var PresetConfigStderr = Config{
	Level: "INFO",
}

// levelNone is above every level slog emits.
const levelNone = slog.LevelError + 4

// ParseLevel maps a level name, case insensitive, to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "INFO":
		return slog.LevelInfo, nil
	case "TRACE", "DEBUG":
		return slog.LevelDebug, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "NONE":
		return levelNone, nil
	default:
		return 0, fmt.Errorf("logging: invalid log level %q", name)
	}
}

// New returns a logger for cfg and a function that closes its output.
func New(cfg Config) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	closer := func() error { return nil }
	if cfg.Filename != "" && cfg.Filename != "-" {
		lj := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		w, closer = lj, lj.Close
	}
	return slog.New(newHandler(w, level, cfg.JSON)), closer, nil
}

// NewWriter returns a logger writing to w, for tests and embedding.
func NewWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(newHandler(w, level, false))
}

func newHandler(w io.Writer, level slog.Level, json bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
