package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// S2 is S2 block compression, a faster Snappy-compatible extension.
type S2 struct{}

// Name returns "s2".
func (S2) Name() string { return "s2" }

// Bound returns s2.MaxEncodedLen(n).
func (S2) Bound(n int) int { return s2.MaxEncodedLen(n) }

// Compress compresses src into dst.
func (S2) Compress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	bound := s2.MaxEncodedLen(len(src))
	if bound < 0 || len(dst) < bound {
		return 0, ErrShortBuffer
	}
	out := s2.Encode(dst, src)
	if len(out) == 0 {
		return 0, ErrEmptyOutput
	}
	return len(out), nil
}

// Decompress decodes src into dst.
func (S2) Decompress(dst, src []byte) (int, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return 0, fmt.Errorf("%w: s2: %w", ErrCorrupt, err)
	}
	if n != len(dst) {
		return 0, fmt.Errorf("%w: s2: encoded length %d, expected %d", ErrCorrupt, n, len(dst))
	}
	out, err := s2.Decode(dst, src)
	if err != nil {
		return 0, fmt.Errorf("%w: s2: %w", ErrCorrupt, err)
	}
	return len(out), nil
}
