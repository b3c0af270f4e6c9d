package framecache

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/hupe1980/framecache/compress"
	"github.com/hupe1980/framecache/internal/fs"
	"github.com/hupe1980/framecache/render"
)

// Outcome is the result of EnsureCache.
type Outcome int

const (
	// OutcomeReady means a verified cache file is attached.
	OutcomeReady Outcome = iota
	// OutcomeNotReady means no usable file exists and creation was not allowed.
	OutcomeNotReady
	// OutcomeFailed means the cache file could not be created or written.
	OutcomeFailed
	// OutcomeCanceled means Cancel was observed during verification or build.
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeNotReady:
		return "not-ready"
	case OutcomeFailed:
		return "failed"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Source reports where GetFrame took a frame from.
type Source int

const (
	// SourceCache means the frame was decompressed from the cache file.
	SourceCache Source = iota
	// SourceRender means the frame was rendered directly.
	SourceRender
)

func (s Source) String() string {
	if s == SourceCache {
		return "cache"
	}
	return "render"
}

// CacheRequest describes how EnsureCache should prepare the cache.
type CacheRequest struct {
	// Surface is the scratch surface frames are rendered into while
	// building. Its geometry is the geometry of every cached frame.
	Surface render.Surface
	// FirstFrame optionally holds frame 0 already rendered at Surface's
	// geometry, saving one render during the build.
	FirstFrame []byte
	// AllowCreate permits building a new file when none can be reused.
	AllowCreate bool
	// ReducedRate stores only even frames; see render.ReducedRate.
	ReducedRate bool
}

// Stats is a snapshot of a session's counters.
type Stats struct {
	CacheFrames    int64
	RenderedFrames int64
	Rewinds        int64
	FileErrors     int64
	// Built is true when the last EnsureCache wrote a new file.
	Built bool
	// Verified is true when the last EnsureCache reused an existing file.
	Verified bool
	// Attached is true while a cache file backs GetFrame.
	Attached bool
}

type geometry struct {
	width, height, stride int
}

func geometryOf(s render.Surface) geometry {
	return geometry{width: s.Width, height: s.Height, stride: s.Stride}
}

// Session serves the frames of one animation at one geometry, backed by a
// cache file when one is available.
//
// EnsureCache, GetFrame and Dispose are serialized; Cancel may be called
// from any goroutine at any time.
type Session struct {
	mu sync.Mutex

	path       string
	anim       render.Animation
	comp       compress.Compressor
	fs         fs.FileSystem
	logger     *Logger
	metrics    MetricsCollector
	sync       bool
	id         string
	frameCount int

	file         fs.File
	geom         geometry
	maxFrameSize uint32
	reduced      bool
	buf          []byte
	nextFrameNo  int

	hadCacheFileErrors bool
	closed             bool
	canceled           atomic.Bool
	stats              Stats
}

// NewSession creates a session for the cache file at path. No file is
// touched until EnsureCache. A nil compressor selects compress.Default.
func NewSession(path string, anim render.Animation, comp compress.Compressor, optFns ...Option) (*Session, error) {
	if anim == nil {
		return nil, errors.New("framecache: nil animation")
	}
	n := anim.FrameCount()
	if n <= 0 || uint64(n) > math.MaxUint32 {
		return nil, ErrNoFrames
	}
	if comp == nil {
		comp = compress.Default
	}

	o := applyOptions(optFns)
	id := o.sessionID
	if id == "" {
		id = uuid.NewString()
	}

	return &Session{
		path:       path,
		anim:       anim,
		comp:       comp,
		fs:         o.fs,
		logger:     o.logger.WithSession(id).WithPath(path),
		metrics:    o.metricsCollector,
		sync:       o.sync,
		id:         id,
		frameCount: n,
	}, nil
}

// Path returns the cache file path.
func (s *Session) Path() string { return s.path }

// ID returns the session correlation ID.
func (s *Session) ID() string { return s.id }

// FrameCount returns the animation's frame count.
func (s *Session) FrameCount() int { return s.frameCount }

// Cancel asks a running or future EnsureCache to stop at the next record
// boundary. Cancellation is permanent for the session.
func (s *Session) Cancel() {
	s.canceled.Store(true)
}

// Canceled reports whether Cancel was called.
func (s *Session) Canceled() bool {
	return s.canceled.Load()
}

// Dispose closes the cache file and releases buffers. It returns true when
// any cache read failed during the session's lifetime, in which case the
// owner should delete the file. Dispose is idempotent.
func (s *Session) Dispose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.closeFile()
		s.buf = nil
	}
	return s.hadCacheFileErrors
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Attached = s.file != nil
	return st
}

func (s *Session) closeFile() {
	if s.file == nil {
		return
	}
	if err := s.file.Close(); err != nil {
		s.logger.Debug("closing cache file", "error", err)
	}
	s.file = nil
}

// ensureBuf grows the scratch buffer to at least n bytes. It never shrinks.
func (s *Session) ensureBuf(n int) []byte {
	if cap(s.buf) < n {
		s.buf = make([]byte, n)
	}
	return s.buf[:n]
}
