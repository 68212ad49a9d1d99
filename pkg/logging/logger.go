// Package logging provides the SDK's self-diagnostic logger.
//
// The metrics pipeline never panics or returns errors from the measurement
// hot path; misuse is reported through this logger instead, at most once per
// diagnostic key.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// NewLogger creates a new slog logger with JSON formatting
func NewLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// NewTextLogger creates a text-formatted logger (for CLI tools and examples)
func NewTextLogger(level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// NewLoggerWithFormat creates a logger with specified format (json or text)
func NewLoggerWithFormat(level slog.Level, format string) *slog.Logger {
	format = strings.ToLower(strings.TrimSpace(format))

	var handler slog.Handler
	switch format {
	case "text":
		// Use colorized tint handler for text format
		// Auto-detect TTY for color support (disables colors when piped)
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "[15:04:05]",
			NoColor:    !isTerminal(os.Stderr),
		})
	case "json", "": // default to JSON if empty or unrecognized
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	default:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// isTerminal checks if the file descriptor is a terminal (for color detection)
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ParseLevel converts string log level to slog.Level
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var (
	defaultLogger atomic.Pointer[slog.Logger]
	seen          sync.Map
)

func init() {
	defaultLogger.Store(NewLogger(slog.LevelWarn))
}

// SetDefault replaces the logger used for SDK self-diagnostics.
func SetDefault(l *slog.Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// Default returns the logger used for SDK self-diagnostics.
func Default() *slog.Logger {
	return defaultLogger.Load()
}

// WarnOnce logs msg at warn level the first time key is seen and never again.
// Each diagnostic category emits exactly one event per offending key.
func WarnOnce(key, msg string, args ...any) {
	if _, dup := seen.LoadOrStore(key, struct{}{}); dup {
		return
	}
	Default().Warn(msg, args...)
}

// ResetOnce clears the warn-once state. Intended for tests.
func ResetOnce() {
	seen.Range(func(k, _ any) bool {
		seen.Delete(k)
		return true
	})
}
