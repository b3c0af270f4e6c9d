package render

// Procedural is a synthetic animation whose frames are computed from the
// frame index and pixel position. It stands in for a real vector renderer in
// the CLI and in tests.
type Procedural struct {
	Frames int
	Rate   float64
	// Seed shifts the pattern so that different animations produce
	// different bytes.
	Seed uint32
}

// FrameCount implements Animation.
func (p Procedural) FrameCount() int { return p.Frames }

// FrameRate implements Animation.
func (p Procedural) FrameRate() float64 { return p.Rate }

// Render implements Animation. Rows are drawn as a moving diagonal band over
// a flat background, which compresses about as well as typical stickers.
func (p Procedural) Render(frame int, dst Surface) {
	shift := uint32(frame)*3 + p.Seed
	for y := 0; y < dst.Height; y++ {
		row := dst.Pixels[y*dst.Stride : (y+1)*dst.Stride]
		for x := 0; x < dst.Width; x++ {
			px := row[x*BytesPerPixel : x*BytesPerPixel+BytesPerPixel]
			d := (uint32(x) + uint32(y) + shift) % 64
			if d < 12 {
				px[0] = byte(d * 20)
				px[1] = byte(shift)
				px[2] = byte(y)
				px[3] = 0xff
			} else {
				px[0], px[1], px[2], px[3] = 0, 0, 0, 0
			}
		}
		// Padding bytes past the last pixel are zeroed so that frames
		// stay deterministic for any stride.
		clear(row[dst.Width*BytesPerPixel:])
	}
}
