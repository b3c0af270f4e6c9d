package framecache

import (
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/framecache/persistence"
	"github.com/hupe1980/framecache/render"
)

// GetFrame writes frame into dst, from the cache file when possible and by
// rendering otherwise. For valid arguments the pixels are always correct;
// cache failures are absorbed and reported by Dispose.
//
// The error is reserved for caller mistakes: a disposed session, a frame
// outside the animation, or a surface whose geometry differs from the one
// passed to EnsureCache.
func (s *Session) GetFrame(frame int, dst render.Surface) (Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return SourceRender, ErrSessionClosed
	}
	if frame < 0 || frame >= s.frameCount {
		return SourceRender, &FrameError{Frame: frame, FrameCount: s.frameCount}
	}
	if err := dst.Validate(); err != nil {
		return SourceRender, err
	}
	if s.file != nil && geometryOf(dst) != s.geom {
		return SourceRender, fmt.Errorf("%w: got %dx%d stride %d, want %dx%d stride %d", ErrSurfaceMismatch,
			dst.Width, dst.Height, dst.Stride, s.geom.width, s.geom.height, s.geom.stride)
	}

	start := time.Now()
	source := SourceRender
	if s.file != nil && s.readFrame(frame, dst) {
		source = SourceCache
		s.stats.CacheFrames++
	} else {
		s.anim.Render(frame, dst)
		s.stats.RenderedFrames++
	}
	s.metrics.RecordFrame(source, time.Since(start))
	return source, nil
}

// readFrame decodes frame from the cache file into dst. It returns false
// when the frame has to be rendered instead.
func (s *Session) readFrame(frame int, dst render.Surface) bool {
	if s.nextFrameNo >= s.frameCount || frame < s.nextFrameNo {
		if _, err := s.file.Seek(persistence.HeaderSize, io.SeekStart); err != nil {
			s.cacheFailure(frame, err)
			return false
		}
		s.nextFrameNo = 0
		s.stats.Rewinds++
	}

	bound := persistence.SizeBound(s.maxFrameSize)
	for s.nextFrameNo < frame {
		n, err := persistence.ReadRecordSize(s.file)
		if err == nil && n > bound {
			err = fmt.Errorf("%w: record %d has %d bytes", persistence.ErrFrameTooLarge, s.nextFrameNo, n)
		}
		if err == nil {
			err = persistence.SkipPayload(s.file, n)
		}
		if err != nil {
			s.cacheFailure(frame, err)
			return false
		}
		s.nextFrameNo++
	}

	n, err := persistence.ReadRecordSize(s.file)
	if err != nil {
		s.cacheFailure(frame, err)
		return false
	}
	if n > bound {
		s.cacheFailure(frame, fmt.Errorf("%w: %d > %d", persistence.ErrFrameTooLarge, n, bound))
		return false
	}
	if n == 0 {
		s.nextFrameNo++
		if !s.reduced || frame%2 == 0 {
			s.logger.Warn("zero-length record outside skipped frames", "frame", frame)
			s.metrics.RecordCacheError(ErrSuspiciousRecord)
		}
		return false
	}

	payload := s.ensureBuf(int(n))
	if err := persistence.ReadPayload(s.file, payload); err != nil {
		s.cacheFailure(frame, err)
		return false
	}
	if _, err := s.comp.Decompress(dst.Bytes(), payload); err != nil {
		s.cacheFailure(frame, err)
		return false
	}
	s.nextFrameNo++
	return true
}

// cacheFailure records a failed cache read and rewinds to the first
// record. If even that fails the file is dropped and the session renders
// every further frame directly.
func (s *Session) cacheFailure(frame int, err error) {
	s.hadCacheFileErrors = true
	s.stats.FileErrors++
	s.metrics.RecordCacheError(err)
	s.logger.LogCacheError(frame, err)

	if _, serr := s.file.Seek(persistence.HeaderSize, io.SeekStart); serr != nil {
		s.logger.LogDirectRender(serr)
		s.closeFile()
		return
	}
	s.nextFrameNo = 0
}
