package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel reads the level from LOG_LEVEL: DEBUG, INFO, WARN or ERROR.
// Defaults to INFO.
func LogLevel(lookup func(string) string) slog.Level {
	switch strings.ToUpper(lookup("LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w.
//
// LOG_FORMAT selects the output:
//   - "json" (default) for machines
//   - "text" for humans
func NewLogger(w io.Writer, lookup func(string) string) *slog.Logger {
	level := LogLevel(lookup)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(lookup("LOG_FORMAT")) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// SetupLogger builds the process logger on stderr from the environment and
// installs it as the slog default.
func SetupLogger() *slog.Logger {
	logger := NewLogger(os.Stderr, os.Getenv)
	slog.SetDefault(logger)

	return logger
}

type ctxKey string

const ctxLogger ctxKey = "logger"

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLogger, logger)
}

// FromContext returns the logger stored in ctx, or the default one.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxLogger).(*slog.Logger); ok {
		return logger
	}

	return slog.Default()
}

// WithRunID tags every record with the pipeline run id.
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

// WithStage tags every record with the stage name.
func WithStage(logger *slog.Logger, stage string) *slog.Logger {
	return logger.With("stage", stage)
}
