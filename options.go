package framecache

import (
	"log/slog"

	"github.com/hupe1980/framecache/internal/fs"
)

type options struct {
	fs               fs.FileSystem
	metricsCollector MetricsCollector
	logger           *Logger
	sync             bool
	sessionID        string
}

// Option configures a Session.
type Option func(*options)

// WithFileSystem sets the file system used for the cache file.
//
// If nil is passed, the local file system is used.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fs.OrDefault(fsys)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &framecache.BasicMetricsCollector{}
//	s, _ := framecache.NewSession(path, anim, compress.Default, framecache.WithMetricsCollector(metrics))
//	// ... use s ...
//	stats := metrics.GetStats()
//	fmt.Printf("from cache: %d, rendered: %d\n", stats.CacheFrames, stats.RenderedFrames)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := framecache.NewJSONLogger(slog.LevelInfo)
//	s, _ := framecache.NewSession(path, anim, compress.Default, framecache.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithSync makes the builder fsync the cache file before it is reopened for
// reading. Off by default.
func WithSync(enabled bool) Option {
	return func(o *options) {
		o.sync = enabled
	}
}

// WithSessionID overrides the random correlation ID attached to log records.
func WithSessionID(id string) Option {
	return func(o *options) {
		o.sessionID = id
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		fs:               fs.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
