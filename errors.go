package framecache

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned when a disposed session is used.
	ErrSessionClosed = errors.New("session closed")
	// ErrFrameOutOfRange is returned for a frame index outside [0, FrameCount).
	ErrFrameOutOfRange = errors.New("frame out of range")
	// ErrSurfaceMismatch is returned when the destination surface does not
	// match the geometry the cache was prepared for.
	ErrSurfaceMismatch = errors.New("surface does not match cache geometry")
	// ErrNoFrames is returned when an animation has no frames.
	ErrNoFrames = errors.New("animation has no frames")
	// ErrSuspiciousRecord is reported to metrics when a zero-length record
	// shows up where the storage mode does not skip frames.
	ErrSuspiciousRecord = errors.New("unexpected zero-length record")
)

// CacheFileError indicates an I/O or compression failure on a cache file.
//
// The original underlying error can be accessed via errors.Unwrap.
type CacheFileError struct {
	Op    string
	Path  string
	Frame int
	cause error
}

func (e *CacheFileError) Error() string {
	if e.Frame >= 0 {
		return fmt.Sprintf("cache file %s %s (frame %d): %v", e.Op, e.Path, e.Frame, e.cause)
	}
	return fmt.Sprintf("cache file %s %s: %v", e.Op, e.Path, e.cause)
}

func (e *CacheFileError) Unwrap() error { return e.cause }

func fileError(op, path string, frame int, err error) error {
	return &CacheFileError{Op: op, Path: path, Frame: frame, cause: err}
}

// FrameError reports a frame index outside the animation.
type FrameError struct {
	Frame      int
	FrameCount int
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d out of range [0, %d)", e.Frame, e.FrameCount)
}

func (e *FrameError) Unwrap() error { return ErrFrameOutOfRange }
