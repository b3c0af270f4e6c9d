package testutil

import (
	"errors"
	"io"
	"math/rand"
	"sync"

	"github.com/hupe1980/framecache/render"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	r.rand.Read(b)
	return b
}

// Gradient returns a compressible procedural animation.
func Gradient(frames int, fps float64) render.Procedural {
	return render.Procedural{Frames: frames, Rate: fps, Seed: 17}
}

// Noise is an animation whose frames are pseudo-random bytes derived from
// the frame index. Frames do not compress.
type Noise struct {
	Frames int
	Rate   float64
	Seed   int64
}

// FrameCount implements render.Animation.
func (n Noise) FrameCount() int { return n.Frames }

// FrameRate implements render.Animation.
func (n Noise) FrameRate() float64 { return n.Rate }

// Render implements render.Animation.
func (n Noise) Render(frame int, dst render.Surface) {
	rng := rand.New(rand.NewSource(n.Seed*7919 + int64(frame)))
	rng.Read(dst.Bytes())
}

// CountingAnimation wraps an animation and records every Render call.
type CountingAnimation struct {
	render.Animation

	mu    sync.Mutex
	calls map[int]int
	total int
}

// NewCountingAnimation wraps anim.
func NewCountingAnimation(anim render.Animation) *CountingAnimation {
	return &CountingAnimation{Animation: anim, calls: make(map[int]int)}
}

// Render implements render.Animation.
func (c *CountingAnimation) Render(frame int, dst render.Surface) {
	c.mu.Lock()
	c.calls[frame]++
	c.total++
	c.mu.Unlock()

	c.Animation.Render(frame, dst)
}

// Calls returns the total number of Render calls.
func (c *CountingAnimation) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// CallsFor returns the number of Render calls for one frame.
func (c *CountingAnimation) CallsFor(frame int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[frame]
}

// Reset clears the counters.
func (c *CountingAnimation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.calls)
	c.total = 0
}

// HookAnimation calls OnRender before delegating each Render call. Tests
// use it to cancel a session in the middle of a build.
type HookAnimation struct {
	render.Animation
	OnRender func(frame int)
}

// Render implements render.Animation.
func (h HookAnimation) Render(frame int, dst render.Surface) {
	if h.OnRender != nil {
		h.OnRender(frame)
	}
	h.Animation.Render(frame, dst)
}

// FrameBytes renders one frame of anim into a fresh width x height surface
// and returns its bytes.
func FrameBytes(anim render.Animation, frame, width, height int) []byte {
	s := render.NewSurface(width, height)
	anim.Render(frame, s)
	return s.Bytes()
}

// MemFile is an in-memory io.ReadWriteSeeker.
type MemFile struct {
	data []byte
	pos  int64
}

// NewMemFile returns a file holding a copy of data, positioned at 0.
func NewMemFile(data []byte) *MemFile {
	return &MemFile{data: append([]byte(nil), data...)}
}

// Bytes returns the file contents.
func (m *MemFile) Bytes() []byte { return m.data }

// Read implements io.Reader.
func (m *MemFile) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

// Write implements io.Writer, extending the file as needed.
func (m *MemFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		m.data = append(m.data, make([]byte, end-int64(len(m.data)))...)
	}
	copy(m.data[m.pos:], p)
	m.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (m *MemFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.pos + offset
	case io.SeekEnd:
		abs = int64(len(m.data)) + offset
	default:
		return 0, errors.New("testutil: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("testutil: negative position")
	}
	m.pos = abs
	return abs, nil
}
