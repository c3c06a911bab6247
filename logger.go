package contrastive

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with contrastive-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithRank adds rank and world-size fields to the logger.
func (l *Logger) WithRank(rank, worldSize int) *Logger {
	return &Logger{
		Logger: l.Logger.With("rank", rank, "world_size", worldSize),
	}
}

// WithBatchSize adds a batch-size field to the logger.
func (l *Logger) WithBatchSize(n int) *Logger {
	return &Logger{
		Logger: l.Logger.With("batch_size", n),
	}
}

// LogForward logs one loss forward pass.
func (l *Logger) LogForward(ctx context.Context, engine string, batchSize int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "forward failed",
			"engine", engine,
			"batch_size", batchSize,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "forward completed",
			"engine", engine,
			"batch_size", batchSize,
		)
	}
}

// LogCacheRebuild logs a label/mask cache recomputation.
func (l *Logger) LogCacheRebuild(ctx context.Context, engine string, batchSize, worldSize int) {
	l.DebugContext(ctx, "label cache rebuilt",
		"engine", engine,
		"batch_size", batchSize,
		"world_size", worldSize,
	)
}
