package framecache

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hupe1980/framecache/internal/fs"
	"github.com/hupe1980/framecache/persistence"
	"github.com/hupe1980/framecache/render"
)

const writeBufferSize = 64 << 10

// EnsureCache makes a cache file available for GetFrame. An existing file
// is verified and reused; otherwise, if req.AllowCreate is set, a new one is
// built by rendering and compressing every frame.
//
// The returned error is non-nil only together with OutcomeFailed. Any file
// attached by an earlier call is released first, so on every outcome other
// than OutcomeReady the session renders frames directly.
func (s *Session) EnsureCache(req CacheRequest) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return OutcomeFailed, ErrSessionClosed
	}
	s.closeFile()

	if err := req.Surface.Validate(); err != nil {
		return OutcomeFailed, err
	}
	if req.FirstFrame != nil && len(req.FirstFrame) != req.Surface.Size() {
		return OutcomeFailed, fmt.Errorf("%w: first frame has %d bytes, want %d",
			ErrSurfaceMismatch, len(req.FirstFrame), req.Surface.Size())
	}

	s.geom = geometryOf(req.Surface)
	s.reduced = req.ReducedRate
	s.stats.Built = false
	s.stats.Verified = false

	magic := persistence.MagicFor(req.ReducedRate)
	if outcome := s.verify(magic); outcome != OutcomeNotReady {
		return outcome, nil
	}
	if !req.AllowCreate {
		return OutcomeNotReady, nil
	}
	return s.build(req, magic)
}

func isConfigMismatch(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, persistence.ErrInvalidMagic) ||
		errors.Is(err, persistence.ErrFrameCountMismatch) ||
		errors.Is(err, persistence.ErrInvalidMaxFrameSize)
}

// verify attaches an existing file at s.path if it passes verification.
// It returns OutcomeReady, OutcomeCanceled, or OutcomeNotReady when the
// file is absent or unusable.
func (s *Session) verify(magic uint32) Outcome {
	start := time.Now()

	f, err := s.fs.OpenFile(s.path, os.O_RDONLY, 0)
	if err != nil {
		s.logger.LogVerify(isConfigMismatch(err), 0, err)
		return OutcomeNotReady
	}
	fs.AdviseSequential(f)

	h, res, err := s.scan(f, magic)
	elapsed := time.Since(start)
	if errors.Is(err, persistence.ErrCanceled) {
		_ = f.Close()
		s.logger.Debug("verification canceled", "records", res.Records)
		return OutcomeCanceled
	}
	if err == nil {
		err = s.attach(f, h.MaxCompressedFrameSize, res.FirstFrameSize)
	}
	s.metrics.RecordVerify(elapsed, err)
	s.logger.LogVerify(isConfigMismatch(err), elapsed, err)
	if err != nil {
		_ = f.Close()
		return OutcomeNotReady
	}

	s.stats.Verified = true
	return OutcomeReady
}

func (s *Session) scan(f fs.File, magic uint32) (persistence.Header, persistence.ScanResult, error) {
	h, err := persistence.ReadHeader(f)
	if err != nil {
		return h, persistence.ScanResult{}, err
	}
	if err := h.Validate(magic, uint32(s.frameCount)); err != nil {
		return h, persistence.ScanResult{}, err
	}
	size := int64(-1)
	if fi, err := f.Stat(); err == nil {
		size = fi.Size()
	}
	res, err := persistence.Scan(f, size, h, s.canceled.Load)
	return h, res, err
}

// attach makes f the session's cache file, positioned at the record of
// frame 1.
func (s *Session) attach(f fs.File, maxFrameSize, firstFrameSize uint32) error {
	if _, err := f.Seek(persistence.RecordOffset(firstFrameSize), io.SeekStart); err != nil {
		return err
	}
	s.ensureBuf(int(maxFrameSize))
	s.file = f
	s.maxFrameSize = maxFrameSize
	s.nextFrameNo = 1
	return nil
}

type buildResult struct {
	stored       int
	bytes        int64
	maxFrameSize uint32
	firstSize    uint32
}

// build writes a fresh cache file and attaches it.
func (s *Session) build(req CacheRequest, magic uint32) (Outcome, error) {
	if s.canceled.Load() {
		return OutcomeCanceled, nil
	}
	start := time.Now()

	f, err := s.fs.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return s.buildFailed(nil, buildResult{}, start, fileError("create", s.path, -1, err))
	}

	res, canceled, err := s.writeRecords(f, req, magic)
	if err != nil {
		return s.buildFailed(f, res, start, err)
	}
	if canceled {
		_ = f.Close()
		s.removeFile()
		s.logger.Info("cache build canceled", "stored", res.stored)
		return OutcomeCanceled, nil
	}

	if s.sync {
		if err := f.Sync(); err != nil {
			return s.buildFailed(f, res, start, fileError("sync", s.path, -1, err))
		}
	}
	if err := f.Close(); err != nil {
		return s.buildFailed(nil, res, start, fileError("close", s.path, -1, err))
	}

	rf, err := s.fs.OpenFile(s.path, os.O_RDONLY, 0)
	if err != nil {
		return s.buildFailed(nil, res, start, fileError("reopen", s.path, -1, err))
	}
	if err := s.attach(rf, res.maxFrameSize, res.firstSize); err != nil {
		return s.buildFailed(rf, res, start, fileError("seek", s.path, -1, err))
	}

	elapsed := time.Since(start)
	s.stats.Built = true
	s.metrics.RecordBuild(s.frameCount, res.bytes, elapsed, nil)
	s.logger.LogBuild(res.stored, res.maxFrameSize, elapsed, nil)
	return OutcomeReady, nil
}

// writeRecords writes the header, one record per frame and the patched
// maximum frame size. It reports canceled when Cancel was observed after a
// record; the file is then incomplete.
func (s *Session) writeRecords(f fs.File, req CacheRequest, magic uint32) (buildResult, bool, error) {
	var res buildResult

	w := bufio.NewWriterSize(f, writeBufferSize)
	h := persistence.Header{Magic: magic, FrameCount: uint32(s.frameCount)}
	if err := persistence.WriteHeader(w, h); err != nil {
		return res, false, fileError("write", s.path, -1, err)
	}
	res.bytes = persistence.HeaderSize

	surface := req.Surface
	for i := 0; i < s.frameCount; i++ {
		var payload []byte
		if !req.ReducedRate || i%2 == 0 {
			var err error
			if payload, err = s.compressFrame(i, req.FirstFrame, surface); err != nil {
				return res, false, err
			}
		}

		if err := persistence.WriteRecord(w, payload); err != nil {
			return res, false, fileError("write", s.path, i, err)
		}

		size := uint32(len(payload))
		if i == 0 {
			res.firstSize = size
		}
		if size > 0 {
			res.stored++
		}
		res.maxFrameSize = max(res.maxFrameSize, size)
		res.bytes += persistence.RecordHeaderSize + int64(size)

		if s.canceled.Load() {
			return res, true, nil
		}
	}

	if err := w.Flush(); err != nil {
		return res, false, fileError("write", s.path, -1, err)
	}
	if err := persistence.PatchMaxFrameSize(f, res.maxFrameSize); err != nil {
		return res, false, fileError("patch", s.path, -1, err)
	}
	return res, false, nil
}

// compressFrame compresses frame i into the scratch buffer. Frame 0 comes
// from first when provided; if that fails to compress the frame is rendered.
func (s *Session) compressFrame(i int, first []byte, surface render.Surface) ([]byte, error) {
	dst := s.ensureBuf(s.comp.Bound(surface.Size()))

	if i == 0 && len(first) > 0 {
		n, err := s.comp.Compress(dst, first)
		if err == nil && n > 0 {
			return dst[:n], nil
		}
		s.logger.Debug("first frame did not compress, rendering it", "error", err)
	}

	s.anim.Render(i, surface)
	n, err := s.comp.Compress(dst, surface.Bytes())
	if err != nil {
		return nil, fileError("compress", s.path, i, err)
	}
	if n == 0 {
		return nil, fileError("compress", s.path, i, errors.New("empty output"))
	}
	return dst[:n], nil
}

// buildFailed releases a partially written file and reports the failure.
func (s *Session) buildFailed(f fs.File, res buildResult, start time.Time, err error) (Outcome, error) {
	if f != nil {
		_ = f.Close()
	}
	s.file = nil
	s.removeFile()

	elapsed := time.Since(start)
	s.metrics.RecordBuild(res.stored, res.bytes, elapsed, err)
	s.logger.LogBuild(res.stored, res.maxFrameSize, elapsed, err)
	return OutcomeFailed, err
}

func (s *Session) removeFile() {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("removing partial cache file", "error", err)
	}
}
