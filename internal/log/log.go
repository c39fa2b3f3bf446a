// Package log provides structured logging for behold, built on log/slog.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Format selects the log output encoding.
type Format int

const (
	// FormatText outputs human-readable text logs.
	FormatText Format = iota
	// FormatJSON outputs JSON logs for machine consumption.
	FormatJSON
)

// ParseFormat parses a string into a Format. Unknown values default to text.
func ParseFormat(s string) Format {
	switch s {
	case "json", "JSON":
		return FormatJSON
	default:
		return FormatText
	}
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to emit.
	Level slog.Level
	// Format selects text or JSON output.
	Format Format
	// Output is where log lines are written.
	Output io.Writer
}

// DefaultConfig returns text logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: FormatText,
		Output: os.Stderr,
	}
}

// Logger wraps slog with behold's configuration.
type Logger struct {
	slog *slog.Logger
}

// New creates a Logger with the given configuration.
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &Logger{slog: slog.New(handler)}
}

// Default creates a logger with default configuration.
func Default() *Logger {
	return New(DefaultConfig())
}

// Discard creates a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New(Config{Level: slog.LevelError, Output: io.Discard})
}

// With returns a Logger with the given attributes added to all entries.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}
