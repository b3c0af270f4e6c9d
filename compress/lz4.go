package compress

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4 is LZ4 block compression.
type LZ4 struct{}

// Name returns "lz4".
func (LZ4) Name() string { return "lz4" }

// Bound returns lz4.CompressBlockBound(n).
func (LZ4) Bound(n int) int { return lz4.CompressBlockBound(n) }

// Compress compresses src into dst.
func (LZ4) Compress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	if len(dst) < lz4.CompressBlockBound(len(src)) {
		return 0, ErrShortBuffer
	}
	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		return 0, fmt.Errorf("lz4: %w", err)
	}
	if n == 0 {
		return 0, ErrEmptyOutput
	}
	return n, nil
}

// Decompress decodes src into dst.
func (LZ4) Decompress(dst, src []byte) (int, error) {
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return n, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
	}
	if n != len(dst) {
		return n, fmt.Errorf("%w: lz4: got %d bytes, expected %d", ErrCorrupt, n, len(dst))
	}
	return n, nil
}
