package logger

import (
	"log/slog"
	"os"
)

// Logger wraps slog for structured JSON logging.
type Logger struct {
	*slog.Logger
}

// New creates a logger at the given level. Output is JSON so log aggregation
// tools can index fields directly.
func New(level string) *Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return &Logger{Logger: slog.New(handler)}
}

// WithComponent returns a logger tagged with a component name, so every line
// from a background job or subsystem is attributable.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.With("component", name)}
}
