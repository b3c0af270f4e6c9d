package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const zstdMaxDecodedSize = 256 << 20

// Zstd is zstandard compression with one frame per block.
//
// Coders are created with concurrency 1 and pooled, so that many sessions
// can compress in parallel without each coder spawning its own goroutines.
type Zstd struct {
	level zstd.EncoderLevel
	enc   sync.Pool
	dec   sync.Pool
}

// NewZstd returns a zstd compressor at the default speed level.
func NewZstd() *Zstd {
	return NewZstdLevel(zstd.SpeedDefault)
}

// NewZstdLevel returns a zstd compressor at the given level.
func NewZstdLevel(level zstd.EncoderLevel) *Zstd {
	return &Zstd{level: level}
}

// Name returns "zstd".
func (z *Zstd) Name() string { return "zstd" }

// Bound returns the zstd worst-case frame size for n input bytes.
func (z *Zstd) Bound(n int) int {
	margin := 0
	if n < 128<<10 {
		margin = ((128 << 10) - n) >> 11
	}
	// Frame header and optional checksum.
	return n + n>>8 + margin + 32
}

func (z *Zstd) getEncoder() (*zstd.Encoder, error) {
	if v := z.enc.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil,
		zstd.WithEncoderLevel(z.level),
		zstd.WithEncoderConcurrency(1),
	)
}

func (z *Zstd) getDecoder() (*zstd.Decoder, error) {
	if v := z.dec.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
		zstd.WithDecoderMaxMemory(zstdMaxDecodedSize),
	)
}

// Compress compresses src into dst.
func (z *Zstd) Compress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	enc, err := z.getEncoder()
	if err != nil {
		return 0, fmt.Errorf("zstd: %w", err)
	}
	defer z.enc.Put(enc)

	out := enc.EncodeAll(src, dst[:0])
	if len(out) > len(dst) {
		return 0, ErrShortBuffer
	}
	if len(out) == 0 {
		return 0, ErrEmptyOutput
	}
	return len(out), nil
}

// Decompress decodes src into dst.
func (z *Zstd) Decompress(dst, src []byte) (int, error) {
	dec, err := z.getDecoder()
	if err != nil {
		return 0, fmt.Errorf("zstd: %w", err)
	}
	defer z.dec.Put(dec)

	out, err := dec.DecodeAll(src, dst[:0])
	if err != nil {
		return 0, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
	}
	if len(out) != len(dst) {
		return 0, fmt.Errorf("%w: zstd: got %d bytes, expected %d", ErrCorrupt, len(out), len(dst))
	}
	return len(out), nil
}
