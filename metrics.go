package framecache

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    framesFromCache prometheus.Counter
//	    buildHistogram  prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordFrame(source framecache.Source, duration time.Duration) {
//	    if source == framecache.SourceCache {
//	        p.framesFromCache.Inc()
//	    }
//	}
type MetricsCollector interface {
	// RecordVerify is called after an existing cache file was examined.
	// err is nil if the file was accepted.
	RecordVerify(duration time.Duration, err error)

	// RecordBuild is called after each build pass. frames is the number of
	// records written, bytes the resulting file size.
	RecordBuild(frames int, bytes int64, duration time.Duration, err error)

	// RecordFrame is called for every frame served by GetFrame.
	RecordFrame(source Source, duration time.Duration)

	// RecordCacheError is called when a cache read fails or looks suspicious.
	RecordCacheError(err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordVerify(time.Duration, error)            {}
func (NoopMetricsCollector) RecordBuild(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordFrame(Source, time.Duration)            {}
func (NoopMetricsCollector) RecordCacheError(error)                       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	VerifyCount      atomic.Int64
	VerifyRejected   atomic.Int64
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildFrames      atomic.Int64
	BuildBytes       atomic.Int64
	BuildTotalNanos  atomic.Int64
	CacheFrames      atomic.Int64
	RenderedFrames   atomic.Int64
	FrameTotalNanos  atomic.Int64
	CacheErrorsCount atomic.Int64
}

// RecordVerify implements MetricsCollector.
func (b *BasicMetricsCollector) RecordVerify(duration time.Duration, err error) {
	b.VerifyCount.Add(1)
	if err != nil {
		b.VerifyRejected.Add(1)
	}
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(frames int, bytes int64, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildFrames.Add(int64(frames))
	b.BuildBytes.Add(bytes)
}

// RecordFrame implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFrame(source Source, duration time.Duration) {
	if source == SourceCache {
		b.CacheFrames.Add(1)
	} else {
		b.RenderedFrames.Add(1)
	}
	b.FrameTotalNanos.Add(duration.Nanoseconds())
}

// RecordCacheError implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheError(error) {
	b.CacheErrorsCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		VerifyCount:    b.VerifyCount.Load(),
		VerifyRejected: b.VerifyRejected.Load(),
		BuildCount:     b.BuildCount.Load(),
		BuildErrors:    b.BuildErrors.Load(),
		BuildFrames:    b.BuildFrames.Load(),
		BuildBytes:     b.BuildBytes.Load(),
		BuildAvgNanos:  b.getAvgBuildNanos(),
		CacheFrames:    b.CacheFrames.Load(),
		RenderedFrames: b.RenderedFrames.Load(),
		FrameAvgNanos:  b.getAvgFrameNanos(),
		CacheErrors:    b.CacheErrorsCount.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgBuildNanos() int64 {
	count := b.BuildCount.Load()
	if count == 0 {
		return 0
	}
	return b.BuildTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgFrameNanos() int64 {
	count := b.CacheFrames.Load() + b.RenderedFrames.Load()
	if count == 0 {
		return 0
	}
	return b.FrameTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	VerifyCount    int64
	VerifyRejected int64
	BuildCount     int64
	BuildErrors    int64
	BuildFrames    int64
	BuildBytes     int64
	BuildAvgNanos  int64
	CacheFrames    int64
	RenderedFrames int64
	FrameAvgNanos  int64
	CacheErrors    int64
}
