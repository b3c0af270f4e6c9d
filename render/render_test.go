package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurface(t *testing.T) {
	s := NewSurface(10, 4)
	assert.Equal(t, 40, s.Stride)
	assert.Equal(t, 160, s.Size())
	assert.Len(t, s.Bytes(), 160)
	require.NoError(t, s.Validate())
}

func TestSurface_Validate(t *testing.T) {
	tests := []struct {
		name string
		s    Surface
	}{
		{"zero width", Surface{Pixels: make([]byte, 16), Width: 0, Height: 1, Stride: 16}},
		{"short stride", Surface{Pixels: make([]byte, 64), Width: 4, Height: 2, Stride: 8}},
		{"short pixels", Surface{Pixels: make([]byte, 10), Width: 4, Height: 2, Stride: 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.s.Validate(), ErrInvalidSurface)
		})
	}
}

func TestReducedRate(t *testing.T) {
	assert.True(t, ReducedRate(Procedural{Frames: 10, Rate: 60}, true))
	assert.True(t, ReducedRate(Procedural{Frames: 10, Rate: 59.94}, true))
	assert.False(t, ReducedRate(Procedural{Frames: 10, Rate: 60}, false))
	assert.False(t, ReducedRate(Procedural{Frames: 10, Rate: 30}, true))
}

func TestProcedural_Deterministic(t *testing.T) {
	p := Procedural{Frames: 5, Rate: 30, Seed: 9}
	a := NewSurface(16, 8)
	b := NewSurface(16, 8)

	p.Render(3, a)
	p.Render(3, b)
	assert.Equal(t, a.Pixels, b.Pixels)

	p.Render(4, b)
	assert.NotEqual(t, a.Pixels, b.Pixels)
}

func TestProcedural_PaddedStride(t *testing.T) {
	p := Procedural{Frames: 1, Rate: 30}
	s := Surface{Pixels: make([]byte, 3*24), Width: 4, Height: 3, Stride: 24}
	for i := range s.Pixels {
		s.Pixels[i] = 0xaa
	}

	p.Render(0, s)
	for y := 0; y < s.Height; y++ {
		pad := s.Pixels[y*s.Stride+16 : (y+1)*s.Stride]
		assert.Equal(t, make([]byte, 8), pad)
	}
}
