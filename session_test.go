package framecache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/framecache/compress"
	"github.com/hupe1980/framecache/internal/fs"
	"github.com/hupe1980/framecache/persistence"
	"github.com/hupe1980/framecache/render"
	"github.com/hupe1980/framecache/testutil"
)

const (
	testWidth  = 32
	testHeight = 24
)

func cachePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "sticker_32_24.fcache")
}

func newSession(t *testing.T, path string, anim render.Animation, opts ...Option) *Session {
	t.Helper()
	s, err := NewSession(path, anim, compress.LZ4{}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Dispose() })
	return s
}

func request(allowCreate, reduced bool) CacheRequest {
	return CacheRequest{
		Surface:     render.NewSurface(testWidth, testHeight),
		AllowCreate: allowCreate,
		ReducedRate: reduced,
	}
}

// buildCache creates a cache file at path and disposes the building session.
func buildCache(t *testing.T, path string, anim render.Animation, reduced bool) {
	t.Helper()
	s, err := NewSession(path, anim, compress.LZ4{})
	require.NoError(t, err)
	outcome, err := s.EnsureCache(request(true, reduced))
	require.NoError(t, err)
	require.Equal(t, OutcomeReady, outcome)
	require.False(t, s.Dispose())
}

func readRecords(t *testing.T, path string) (persistence.Header, []persistence.Record) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	h, err := persistence.ReadHeader(f)
	require.NoError(t, err)
	var recs []persistence.Record
	require.NoError(t, persistence.Walk(f, h, func(r persistence.Record) error {
		recs = append(recs, r)
		return nil
	}))
	return h, recs
}

func TestNewSession(t *testing.T) {
	_, err := NewSession("x", testutil.Gradient(0, 30), nil)
	assert.ErrorIs(t, err, ErrNoFrames)

	_, err = NewSession("x", nil, nil)
	assert.Error(t, err)

	s, err := NewSession("x", testutil.Gradient(3, 30), nil, WithSessionID("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", s.ID())
	assert.Equal(t, 3, s.FrameCount())
	assert.Equal(t, "lz4", s.comp.Name())
}

func TestEnsureCache_RoundTrip(t *testing.T) {
	for _, name := range compress.Names() {
		t.Run(name, func(t *testing.T) {
			comp, err := compress.ByName(name)
			require.NoError(t, err)

			path := cachePath(t)
			anim := testutil.NewCountingAnimation(testutil.Gradient(10, 30))
			metrics := &BasicMetricsCollector{}
			s, err := NewSession(path, anim, comp, WithMetricsCollector(metrics))
			require.NoError(t, err)
			defer s.Dispose()

			outcome, err := s.EnsureCache(request(true, false))
			require.NoError(t, err)
			require.Equal(t, OutcomeReady, outcome)
			assert.True(t, s.Stats().Built)
			assert.Equal(t, 10, anim.Calls())

			anim.Reset()
			dst := render.NewSurface(testWidth, testHeight)
			for i := 0; i < 10; i++ {
				src, err := s.GetFrame(i, dst)
				require.NoError(t, err)
				assert.Equal(t, SourceCache, src, "frame %d", i)
				assert.Equal(t, testutil.FrameBytes(anim.Animation, i, testWidth, testHeight), dst.Bytes(), "frame %d", i)
			}
			assert.Equal(t, 0, anim.Calls())

			stats := metrics.GetStats()
			assert.Equal(t, int64(1), stats.BuildCount)
			assert.Equal(t, int64(10), stats.BuildFrames)
			assert.Equal(t, int64(10), stats.CacheFrames)
			assert.Zero(t, stats.CacheErrors)

			fi, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, fi.Size(), stats.BuildBytes)
			assert.False(t, s.Dispose())
		})
	}
}

func TestEnsureCache_PaddedStride(t *testing.T) {
	path := cachePath(t)
	anim := testutil.Gradient(4, 30)
	s := newSession(t, path, anim)

	surf := render.Surface{Pixels: make([]byte, testHeight*(testWidth*4+12)), Width: testWidth, Height: testHeight, Stride: testWidth*4 + 12}
	outcome, err := s.EnsureCache(CacheRequest{Surface: surf, AllowCreate: true})
	require.NoError(t, err)
	require.Equal(t, OutcomeReady, outcome)

	dst := render.Surface{Pixels: make([]byte, len(surf.Pixels)), Width: surf.Width, Height: surf.Height, Stride: surf.Stride}
	want := render.Surface{Pixels: make([]byte, len(surf.Pixels)), Width: surf.Width, Height: surf.Height, Stride: surf.Stride}
	for i := 0; i < 4; i++ {
		src, err := s.GetFrame(i, dst)
		require.NoError(t, err)
		assert.Equal(t, SourceCache, src)
		anim.Render(i, want)
		assert.Equal(t, want.Pixels, dst.Pixels)
	}

	_, err = s.GetFrame(0, render.NewSurface(testWidth, testHeight))
	assert.ErrorIs(t, err, ErrSurfaceMismatch)
}

func TestEnsureCache_RecordCount(t *testing.T) {
	path := cachePath(t)
	buildCache(t, path, testutil.Gradient(17, 30), false)

	h, recs := readRecords(t, path)
	assert.Equal(t, persistence.MagicNormal, h.Magic)
	assert.Equal(t, uint32(17), h.FrameCount)
	assert.Len(t, recs, 17)

	var largest uint32
	for _, r := range recs {
		assert.NotZero(t, r.Size)
		largest = max(largest, r.Size)
	}
	assert.Equal(t, largest, h.MaxCompressedFrameSize)

	last := recs[len(recs)-1]
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fi.Size(), last.Offset+persistence.RecordHeaderSize+int64(last.Size))
}

func TestEnsureCache_ReducedRate(t *testing.T) {
	path := cachePath(t)
	base := testutil.Gradient(9, 60)
	require.True(t, render.ReducedRate(base, true))

	anim := testutil.NewCountingAnimation(base)
	metrics := &BasicMetricsCollector{}
	s := newSession(t, path, anim, WithMetricsCollector(metrics))

	outcome, err := s.EnsureCache(request(true, true))
	require.NoError(t, err)
	require.Equal(t, OutcomeReady, outcome)
	// Only even frames are rendered during the build.
	for i := 0; i < 9; i++ {
		assert.Equal(t, 1-i%2, anim.CallsFor(i), "frame %d", i)
	}

	h, recs := readRecords(t, path)
	assert.Equal(t, persistence.MagicReduced, h.Magic)
	require.Len(t, recs, 9)
	for i, r := range recs {
		if i%2 == 1 {
			assert.Zero(t, r.Size, "record %d", i)
		} else {
			assert.NotZero(t, r.Size, "record %d", i)
		}
	}

	dst := render.NewSurface(testWidth, testHeight)
	for i := 0; i < 9; i++ {
		src, err := s.GetFrame(i, dst)
		require.NoError(t, err)
		want := SourceCache
		if i%2 == 1 {
			want = SourceRender
		}
		assert.Equal(t, want, src, "frame %d", i)
		assert.Equal(t, testutil.FrameBytes(base, i, testWidth, testHeight), dst.Bytes())
	}
	assert.Zero(t, metrics.GetStats().CacheErrors)
	assert.False(t, s.Dispose())
}

func TestEnsureCache_NotReadyWithoutCreate(t *testing.T) {
	path := cachePath(t)
	s := newSession(t, path, testutil.Gradient(5, 30))

	outcome, err := s.EnsureCache(request(false, false))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotReady, outcome)
	assert.NoFileExists(t, path)

	dst := render.NewSurface(testWidth, testHeight)
	src, err := s.GetFrame(2, dst)
	require.NoError(t, err)
	assert.Equal(t, SourceRender, src)
	assert.Equal(t, testutil.FrameBytes(testutil.Gradient(5, 30), 2, testWidth, testHeight), dst.Bytes())
}

func TestEnsureCache_ConfigMismatch(t *testing.T) {
	path := cachePath(t)
	buildCache(t, path, testutil.Gradient(10, 60), false)

	t.Run("Magic", func(t *testing.T) {
		s := newSession(t, path, testutil.Gradient(10, 60))
		outcome, err := s.EnsureCache(request(false, true))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotReady, outcome)
		assert.FileExists(t, path)
	})

	t.Run("FrameCount", func(t *testing.T) {
		s := newSession(t, path, testutil.Gradient(12, 60))
		outcome, err := s.EnsureCache(request(false, false))
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotReady, outcome)
	})

	t.Run("Rebuild", func(t *testing.T) {
		s := newSession(t, path, testutil.Gradient(10, 60))
		outcome, err := s.EnsureCache(request(true, true))
		require.NoError(t, err)
		assert.Equal(t, OutcomeReady, outcome)
		assert.True(t, s.Stats().Built)

		h, _ := readRecords(t, path)
		assert.Equal(t, persistence.MagicReduced, h.Magic)
	})
}

func TestEnsureCache_IdempotentVerification(t *testing.T) {
	path := cachePath(t)
	buildCache(t, path, testutil.Gradient(8, 30), false)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	faulty := fs.NewFaultyFS(nil)
	anim := testutil.NewCountingAnimation(testutil.Gradient(8, 30))
	metrics := &BasicMetricsCollector{}
	s := newSession(t, path, anim, WithFileSystem(faulty), WithMetricsCollector(metrics))

	outcome, err := s.EnsureCache(request(true, false))
	require.NoError(t, err)
	require.Equal(t, OutcomeReady, outcome)

	st := s.Stats()
	assert.True(t, st.Verified)
	assert.False(t, st.Built)
	assert.Zero(t, anim.Calls())
	assert.Zero(t, faulty.Written())
	assert.Equal(t, int64(1), metrics.GetStats().VerifyCount)
	assert.Zero(t, metrics.GetStats().VerifyRejected)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// A second EnsureCache on the same session verifies again.
	outcome, err = s.EnsureCache(request(true, false))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReady, outcome)
	assert.Zero(t, faulty.Written())
	assert.Equal(t, int64(2), faulty.Opens())
}

func TestEnsureCache_RejectsDamagedFile(t *testing.T) {
	path := cachePath(t)
	buildCache(t, path, testutil.Gradient(6, 30), false)
	fi, err := os.Stat(path)
	require.NoError(t, err)

	tests := []struct {
		name   string
		damage func(t *testing.T)
	}{
		{"TruncatedByOneByte", func(t *testing.T) {
			require.NoError(t, os.Truncate(path, fi.Size()-1))
		}},
		{"TrailingByte", func(t *testing.T) {
			f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
			require.NoError(t, err)
			_, err = f.Write([]byte{0})
			require.NoError(t, err)
			require.NoError(t, f.Close())
		}},
		{"HeaderOnly", func(t *testing.T) {
			require.NoError(t, os.Truncate(path, persistence.HeaderSize))
		}},
		{"UnpatchedMax", func(t *testing.T) {
			f, err := os.OpenFile(path, os.O_RDWR, 0)
			require.NoError(t, err)
			require.NoError(t, persistence.PatchMaxFrameSize(f, 0))
			require.NoError(t, f.Close())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildCache(t, path, testutil.Gradient(6, 30), false)
			tt.damage(t)

			s := newSession(t, path, testutil.Gradient(6, 30))
			outcome, err := s.EnsureCache(request(false, false))
			require.NoError(t, err)
			assert.Equal(t, OutcomeNotReady, outcome)
			assert.False(t, s.Stats().Attached)

			outcome, err = s.EnsureCache(request(true, false))
			require.NoError(t, err)
			assert.Equal(t, OutcomeReady, outcome)
			assert.True(t, s.Stats().Built)
		})
	}
}

func TestEnsureCache_FirstFrame(t *testing.T) {
	path := cachePath(t)
	base := testutil.Gradient(5, 30)
	anim := testutil.NewCountingAnimation(base)
	s := newSession(t, path, anim)

	req := request(true, false)
	req.FirstFrame = testutil.FrameBytes(base, 0, testWidth, testHeight)
	outcome, err := s.EnsureCache(req)
	require.NoError(t, err)
	require.Equal(t, OutcomeReady, outcome)
	assert.Zero(t, anim.CallsFor(0))
	assert.Equal(t, 4, anim.Calls())

	dst := render.NewSurface(testWidth, testHeight)
	src, err := s.GetFrame(0, dst)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, req.FirstFrame, dst.Bytes())

	req.FirstFrame = []byte{1, 2, 3}
	outcome, err = s.EnsureCache(req)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, ErrSurfaceMismatch)
}

func TestEnsureCache_WriteFailure(t *testing.T) {
	path := cachePath(t)
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule(".fcache", fs.Fault{WriteLimit: 100})

	metrics := &BasicMetricsCollector{}
	s := newSession(t, path, testutil.Gradient(10, 30), WithFileSystem(faulty), WithMetricsCollector(metrics))

	outcome, err := s.EnsureCache(request(true, false))
	assert.Equal(t, OutcomeFailed, outcome)
	require.Error(t, err)

	var cfe *CacheFileError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, "write", cfe.Op)
	assert.Equal(t, path, cfe.Path)
	assert.ErrorIs(t, err, fs.ErrInjected)

	assert.NoFileExists(t, path)
	assert.False(t, s.Stats().Attached)
	assert.Equal(t, int64(1), metrics.GetStats().BuildErrors)

	dst := render.NewSurface(testWidth, testHeight)
	src, err := s.GetFrame(4, dst)
	require.NoError(t, err)
	assert.Equal(t, SourceRender, src)
}

func TestEnsureCache_CreateFailure(t *testing.T) {
	path := cachePath(t)
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule(".fcache", fs.Fault{FailOnOpen: true})
	s := newSession(t, path, testutil.Gradient(3, 30), WithFileSystem(faulty))

	outcome, err := s.EnsureCache(request(true, false))
	assert.Equal(t, OutcomeFailed, outcome)

	var cfe *CacheFileError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, "create", cfe.Op)
	assert.NoFileExists(t, path)
}

func TestEnsureCache_SyncFailure(t *testing.T) {
	path := cachePath(t)
	faulty := fs.NewFaultyFS(nil)
	faulty.AddRule(".fcache", fs.Fault{FailOnSync: true})
	s := newSession(t, path, testutil.Gradient(3, 30), WithFileSystem(faulty), WithSync(true))

	outcome, err := s.EnsureCache(request(true, false))
	assert.Equal(t, OutcomeFailed, outcome)
	var cfe *CacheFileError
	require.ErrorAs(t, err, &cfe)
	assert.Equal(t, "sync", cfe.Op)
	assert.NoFileExists(t, path)
}

func TestEnsureCache_InvalidSurface(t *testing.T) {
	s := newSession(t, cachePath(t), testutil.Gradient(3, 30))
	outcome, err := s.EnsureCache(CacheRequest{Surface: render.Surface{Width: 4, Height: 4, Stride: 16}})
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, render.ErrInvalidSurface)
}

func TestCancel_DuringBuild(t *testing.T) {
	path := cachePath(t)
	var s *Session
	anim := testutil.HookAnimation{
		Animation: testutil.Gradient(10, 30),
		OnRender: func(frame int) {
			if frame == 3 {
				s.Cancel()
			}
		},
	}
	s = newSession(t, path, anim)

	outcome, err := s.EnsureCache(request(true, false))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, outcome)
	assert.True(t, s.Canceled())
	assert.NoFileExists(t, path)
	assert.False(t, s.Stats().Attached)

	dst := render.NewSurface(testWidth, testHeight)
	src, err := s.GetFrame(7, dst)
	require.NoError(t, err)
	assert.Equal(t, SourceRender, src)
	assert.Equal(t, testutil.FrameBytes(anim.Animation, 7, testWidth, testHeight), dst.Bytes())
	assert.False(t, s.Dispose())
}

func TestCancel_DuringVerification(t *testing.T) {
	path := cachePath(t)
	buildCache(t, path, testutil.Gradient(10, 30), false)

	s := newSession(t, path, testutil.Gradient(10, 30))
	s.Cancel()

	outcome, err := s.EnsureCache(request(true, false))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, outcome)
	assert.FileExists(t, path)
	assert.False(t, s.Stats().Attached)
}

func TestCancel_BeforeBuild(t *testing.T) {
	path := cachePath(t)
	s := newSession(t, path, testutil.Gradient(10, 30))
	s.Cancel()

	outcome, err := s.EnsureCache(request(true, false))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, outcome)
	assert.NoFileExists(t, path)
}

func TestGetFrame_CursorMonotonicity(t *testing.T) {
	path := cachePath(t)
	buildCache(t, path, testutil.Gradient(12, 30), false)

	s := newSession(t, path, testutil.Gradient(12, 30))
	outcome, err := s.EnsureCache(request(false, false))
	require.NoError(t, err)
	require.Equal(t, OutcomeReady, outcome)

	dst := render.NewSurface(testWidth, testHeight)
	for i := 1; i < 12; i++ {
		src, err := s.GetFrame(i, dst)
		require.NoError(t, err)
		assert.Equal(t, SourceCache, src)
	}
	assert.Zero(t, s.Stats().Rewinds)

	// Past the last frame the cursor wraps to the start.
	_, err = s.GetFrame(0, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Stats().Rewinds)

	// Forward jumps skip records without rewinding.
	_, err = s.GetFrame(6, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Stats().Rewinds)

	// Backward jumps rewind.
	src, err := s.GetFrame(3, dst)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, int64(2), s.Stats().Rewinds)
	assert.Equal(t, testutil.FrameBytes(testutil.Gradient(12, 30), 3, testWidth, testHeight), dst.Bytes())
}

func TestGetFrame_CorruptionFallback(t *testing.T) {
	path := cachePath(t)
	anim := testutil.Gradient(10, 30)
	buildCache(t, path, anim, false)
	_, recs := readRecords(t, path)

	metrics := &BasicMetricsCollector{}
	s := newSession(t, path, anim, WithMetricsCollector(metrics))
	outcome, err := s.EnsureCache(request(false, false))
	require.NoError(t, err)
	require.Equal(t, OutcomeReady, outcome)

	// Keep the first five records only.
	require.NoError(t, os.Truncate(path, recs[5].Offset))

	dst := render.NewSurface(testWidth, testHeight)
	src, err := s.GetFrame(8, dst)
	require.NoError(t, err)
	assert.Equal(t, SourceRender, src)
	assert.Equal(t, testutil.FrameBytes(anim, 8, testWidth, testHeight), dst.Bytes())

	st := s.Stats()
	assert.Equal(t, int64(1), st.FileErrors)
	assert.True(t, st.Attached)
	assert.Equal(t, int64(1), metrics.GetStats().CacheErrors)

	// Intact records are still served from the file.
	src, err = s.GetFrame(2, dst)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, testutil.FrameBytes(anim, 2, testWidth, testHeight), dst.Bytes())

	assert.True(t, s.Dispose())
	assert.True(t, s.Dispose())
}

type flakyCompressor struct {
	compress.Compressor
	fail bool
}

func (f *flakyCompressor) Decompress(dst, src []byte) (int, error) {
	if f.fail {
		return 0, compress.ErrCorrupt
	}
	return f.Compressor.Decompress(dst, src)
}

func TestGetFrame_DecompressFailure(t *testing.T) {
	path := cachePath(t)
	anim := testutil.Gradient(6, 30)
	comp := &flakyCompressor{Compressor: compress.LZ4{}}
	s, err := NewSession(path, anim, comp)
	require.NoError(t, err)
	defer s.Dispose()

	outcome, err := s.EnsureCache(request(true, false))
	require.NoError(t, err)
	require.Equal(t, OutcomeReady, outcome)

	dst := render.NewSurface(testWidth, testHeight)
	comp.fail = true
	src, err := s.GetFrame(2, dst)
	require.NoError(t, err)
	assert.Equal(t, SourceRender, src)
	assert.Equal(t, testutil.FrameBytes(anim, 2, testWidth, testHeight), dst.Bytes())

	comp.fail = false
	src, err = s.GetFrame(3, dst)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, testutil.FrameBytes(anim, 3, testWidth, testHeight), dst.Bytes())
	assert.True(t, s.Dispose())
}

func TestGetFrame_SeekFailureSwitchesToDirect(t *testing.T) {
	path := cachePath(t)
	anim := testutil.Gradient(6, 30)
	buildCache(t, path, anim, false)

	faulty := fs.NewFaultyFS(nil)
	s := newSession(t, path, anim, WithFileSystem(faulty))
	outcome, err := s.EnsureCache(request(false, false))
	require.NoError(t, err)
	require.Equal(t, OutcomeReady, outcome)

	faulty.AddRule(".fcache", fs.Fault{FailOnSeek: true})

	dst := render.NewSurface(testWidth, testHeight)
	src, err := s.GetFrame(0, dst)
	require.NoError(t, err)
	assert.Equal(t, SourceRender, src)
	assert.Equal(t, testutil.FrameBytes(anim, 0, testWidth, testHeight), dst.Bytes())
	assert.False(t, s.Stats().Attached)

	for i := 1; i < 6; i++ {
		src, err := s.GetFrame(i, dst)
		require.NoError(t, err)
		assert.Equal(t, SourceRender, src)
	}
	assert.Equal(t, int64(1), s.Stats().FileErrors)
	assert.True(t, s.Dispose())
}

func TestGetFrame_SuspiciousZeroLengthRecord(t *testing.T) {
	path := cachePath(t)
	anim := testutil.Gradient(4, 30)

	f, err := os.Create(path)
	require.NoError(t, err)
	comp := compress.LZ4{}
	var payloads [][]byte
	var largest uint32
	for i := 0; i < 4; i++ {
		if i == 2 {
			payloads = append(payloads, nil)
			continue
		}
		src := testutil.FrameBytes(anim, i, testWidth, testHeight)
		dst := make([]byte, comp.Bound(len(src)))
		n, err := comp.Compress(dst, src)
		require.NoError(t, err)
		payloads = append(payloads, dst[:n])
		largest = max(largest, uint32(n))
	}
	require.NoError(t, persistence.WriteHeader(f, persistence.Header{
		Magic: persistence.MagicNormal, FrameCount: 4, MaxCompressedFrameSize: largest,
	}))
	for _, p := range payloads {
		require.NoError(t, persistence.WriteRecord(f, p))
	}
	require.NoError(t, f.Close())

	metrics := &BasicMetricsCollector{}
	s := newSession(t, path, anim, WithMetricsCollector(metrics))
	outcome, err := s.EnsureCache(request(false, false))
	require.NoError(t, err)
	require.Equal(t, OutcomeReady, outcome)

	dst := render.NewSurface(testWidth, testHeight)
	for i := 0; i < 4; i++ {
		src, err := s.GetFrame(i, dst)
		require.NoError(t, err)
		if i == 2 {
			assert.Equal(t, SourceRender, src)
		} else {
			assert.Equal(t, SourceCache, src)
		}
		assert.Equal(t, testutil.FrameBytes(anim, i, testWidth, testHeight), dst.Bytes())
	}

	assert.Equal(t, int64(1), metrics.GetStats().CacheErrors)
	assert.Zero(t, s.Stats().FileErrors)
	assert.False(t, s.Dispose())
}

func TestGetFrame_CallerErrors(t *testing.T) {
	path := cachePath(t)
	s := newSession(t, path, testutil.Gradient(3, 30))
	_, err := s.EnsureCache(request(true, false))
	require.NoError(t, err)

	dst := render.NewSurface(testWidth, testHeight)
	_, err = s.GetFrame(3, dst)
	assert.ErrorIs(t, err, ErrFrameOutOfRange)
	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 3, fe.FrameCount)

	_, err = s.GetFrame(-1, dst)
	assert.ErrorIs(t, err, ErrFrameOutOfRange)

	_, err = s.GetFrame(0, render.NewSurface(testWidth+1, testHeight))
	assert.ErrorIs(t, err, ErrSurfaceMismatch)

	assert.False(t, s.Dispose())
	_, err = s.GetFrame(0, dst)
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.EnsureCache(request(true, false))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestRenderFirstFrameOnly(t *testing.T) {
	anim := testutil.NewCountingAnimation(testutil.Gradient(5, 30))
	dst := render.NewSurface(testWidth, testHeight)

	require.NoError(t, RenderFirstFrameOnly(anim, dst))
	assert.Equal(t, 1, anim.CallsFor(0))
	assert.Equal(t, 1, anim.Calls())
	assert.Equal(t, testutil.FrameBytes(anim.Animation, 0, testWidth, testHeight), dst.Bytes())

	assert.ErrorIs(t, RenderFirstFrameOnly(testutil.Gradient(0, 30), dst), ErrNoFrames)
	assert.ErrorIs(t, RenderFirstFrameOnly(anim, render.Surface{}), render.ErrInvalidSurface)
}

func TestOutcomeAndSourceStrings(t *testing.T) {
	assert.Equal(t, "ready", OutcomeReady.String())
	assert.Equal(t, "not-ready", OutcomeNotReady.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "canceled", OutcomeCanceled.String())
	assert.Equal(t, "cache", SourceCache.String())
	assert.Equal(t, "render", SourceRender.String())
}
