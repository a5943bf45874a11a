// Package logging provides structured logging built on log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lockerroom/lockerroom-core/internal/infrastructure/config"
)

// Logger wraps slog.Logger with service-wide default attributes.
type Logger struct {
	*slog.Logger
}

// New creates a Logger from configuration. Every record carries the
// service name and version.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	logger := slog.New(handler).With(
		slog.String("service", "lockerroom"),
		slog.String("version", version),
	)

	return &Logger{Logger: logger}
}

// With returns a Logger with additional default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a JSON stdout logger at info level, for use before
// configuration is loaded.
func Default() *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &Logger{Logger: slog.New(handler).With(slog.String("service", "lockerroom"))}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
