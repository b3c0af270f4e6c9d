// Package render defines the renderer collaborator of the frame cache.
//
// An Animation draws any of its frames into a caller-owned Surface. The cache
// never interprets pixels: it only moves Height*Stride bytes between the
// renderer, the compressor and the cache file.
package render

import (
	"errors"
	"fmt"
	"math"
)

// BytesPerPixel is the size of one premultiplied RGBA pixel.
const BytesPerPixel = 4

// ErrInvalidSurface is returned by Surface.Validate.
var ErrInvalidSurface = errors.New("render: invalid surface")

// Animation is a vector animation that can render any frame on demand.
//
// Render must be deterministic: the same frame index and surface geometry
// always produce the same bytes.
type Animation interface {
	// FrameCount returns the number of frames; it is fixed for the lifetime
	// of the animation.
	FrameCount() int
	// FrameRate returns the nominal playback rate in frames per second.
	FrameRate() float64
	// Render draws frame into dst. It fills every byte of dst.Pixels up to
	// dst.Size().
	Render(frame int, dst Surface)
}

// Surface is a caller-owned pixel buffer. Stride is in bytes.
type Surface struct {
	Pixels []byte
	Width  int
	Height int
	Stride int
}

// NewSurface allocates a tightly packed RGBA surface.
func NewSurface(width, height int) Surface {
	stride := width * BytesPerPixel
	return Surface{
		Pixels: make([]byte, stride*height),
		Width:  width,
		Height: height,
		Stride: stride,
	}
}

// Size returns the number of bytes a frame occupies: Height*Stride.
func (s Surface) Size() int {
	return s.Height * s.Stride
}

// Bytes returns the frame bytes, Pixels[:Size()].
func (s Surface) Bytes() []byte {
	return s.Pixels[:s.Size()]
}

// Validate checks the geometry and that Pixels is large enough.
func (s Surface) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSurface, s.Width, s.Height)
	}
	if s.Stride < s.Width*BytesPerPixel {
		return fmt.Errorf("%w: stride %d shorter than row (%d bytes)", ErrInvalidSurface, s.Stride, s.Width*BytesPerPixel)
	}
	if len(s.Pixels) < s.Size() {
		return fmt.Errorf("%w: %d pixel bytes, need %d", ErrInvalidSurface, len(s.Pixels), s.Size())
	}
	return nil
}

// ReducedRate reports whether every odd frame should be skipped: the
// animation runs at 60 fps and the caller asked to limit the rate.
func ReducedRate(anim Animation, limitFPS bool) bool {
	return limitFPS && int(math.Round(anim.FrameRate())) == 60
}
