// Package compress provides the lossless block compressors used for cached
// frames.
//
// A Compressor works on whole blocks: one rendered frame in, one compressed
// payload out. Implementations are stateless from the caller's point of view
// and safe for concurrent use by independent sessions.
package compress

import (
	"errors"
	"fmt"
)

var (
	// ErrShortBuffer is returned when the destination cannot hold the result.
	ErrShortBuffer = errors.New("compress: destination buffer too small")
	// ErrCorrupt is returned when a payload cannot be decoded into the
	// expected number of bytes.
	ErrCorrupt = errors.New("compress: corrupt input")
	// ErrEmptyOutput is returned when a compressor produced no bytes for
	// non-empty input.
	ErrEmptyOutput = errors.New("compress: empty output")
	// ErrUnknown is returned by ByName for unsupported names.
	ErrUnknown = errors.New("compress: unknown compressor")
)

// Compressor compresses and decompresses independent blocks.
type Compressor interface {
	// Name returns the stable name of the algorithm.
	Name() string
	// Bound returns the worst-case compressed size of n input bytes.
	Bound(n int) int
	// Compress writes the compressed form of src into dst and returns the
	// number of bytes written. dst must hold at least Bound(len(src)) bytes.
	Compress(dst, src []byte) (int, error)
	// Decompress decodes src into dst and returns the number of bytes
	// written. Anything other than exactly len(dst) decoded bytes is an error.
	Decompress(dst, src []byte) (int, error)
}

// Default is the compressor used when none is configured. LZ4 trades ratio
// for decode speed, which matters when frames are served at playback rate.
var Default Compressor = LZ4{}

// ByName returns a built-in compressor by its stable name.
func ByName(name string) (Compressor, error) {
	switch name {
	case "", "lz4":
		return LZ4{}, nil
	case "zstd":
		return NewZstd(), nil
	case "s2":
		return S2{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
}

// Names lists the built-in compressor names.
func Names() []string {
	return []string{"lz4", "zstd", "s2"}
}
