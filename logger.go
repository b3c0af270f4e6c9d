package framecache

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with framecache-specific context.
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
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithSession adds a session correlation ID to the logger.
func (l *Logger) WithSession(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("session", id),
	}
}

// WithPath adds the cache file path to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithFrames adds a frame count field to the logger.
func (l *Logger) WithFrames(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("frames", count),
	}
}

// LogBuild logs the end of a cache build pass.
func (l *Logger) LogBuild(stored int, maxFrameSize uint32, duration time.Duration, err error) {
	if err != nil {
		l.Error("cache build failed",
			"stored", stored,
			"duration", duration,
			"error", err,
		)
	} else {
		l.Info("cache built",
			"stored", stored,
			"max_frame_size", maxFrameSize,
			"duration", duration,
		)
	}
}

// LogVerify logs the result of verifying an existing cache file.
// Configuration mismatches and missing files are expected and logged at
// debug level; anything else means the file was damaged.
func (l *Logger) LogVerify(expected bool, duration time.Duration, err error) {
	switch {
	case err == nil:
		l.Debug("cache verified",
			"duration", duration,
		)
	case expected:
		l.Debug("cache file not reusable",
			"error", err,
		)
	default:
		l.Warn("cache file rejected",
			"duration", duration,
			"error", err,
		)
	}
}

// LogCacheError logs a failed cache read.
func (l *Logger) LogCacheError(frame int, err error) {
	l.Warn("cache read failed, rendering frame",
		"frame", frame,
		"error", err,
	)
}

// LogDirectRender logs a session switching to direct rendering for good.
func (l *Logger) LogDirectRender(err error) {
	l.Error("cache file abandoned, rendering directly",
		"error", err,
	)
}
