package persistence

import (
	"errors"
	"fmt"
)

const (
	// MagicNormal identifies a cache file storing every frame.
	MagicNormal uint32 = 0xf0ebaef1
	// MagicReduced identifies a cache file storing only even frames.
	MagicReduced uint32 = 0xf0ebaef2

	// HeaderSize is the size of the fixed file header in bytes.
	HeaderSize = 12
	// RecordHeaderSize is the size of the length prefix of every record.
	RecordHeaderSize = 4

	// MaxCompressedFrameSize is the sanity ceiling for a single record payload.
	// Corrupt length fields above it are rejected before any allocation.
	MaxCompressedFrameSize = 15 << 20

	maxFrameSizeOffset = 8
)

var (
	ErrInvalidMagic        = errors.New("invalid cache file magic")
	ErrFrameCountMismatch  = errors.New("cache file frame count mismatch")
	ErrInvalidMaxFrameSize = errors.New("invalid max compressed frame size")
	ErrTruncated           = errors.New("cache file truncated")
	ErrRecordCount         = errors.New("cache file record count mismatch")
	ErrFrameTooLarge       = errors.New("compressed frame exceeds size bound")
	ErrCanceled            = errors.New("scan canceled")
)

// MagicFor returns the magic number for the given storage mode.
func MagicFor(reduced bool) uint32 {
	if reduced {
		return MagicReduced
	}
	return MagicNormal
}

// Header is the fixed-size header at the start of every cache file.
type Header struct {
	Magic                  uint32
	FrameCount             uint32
	MaxCompressedFrameSize uint32
}

// Reduced reports whether the header describes a reduced-rate file.
func (h Header) Reduced() bool {
	return h.Magic == MagicReduced
}

// Validate checks the header against the expected magic and the live
// animation's frame count.
func (h Header) Validate(magic, frameCount uint32) error {
	if h.Magic != magic {
		return fmt.Errorf("%w: got %#x, want %#x", ErrInvalidMagic, h.Magic, magic)
	}
	if h.FrameCount != frameCount {
		return fmt.Errorf("%w: got %d, want %d", ErrFrameCountMismatch, h.FrameCount, frameCount)
	}
	if h.MaxCompressedFrameSize == 0 || h.MaxCompressedFrameSize > MaxCompressedFrameSize {
		return fmt.Errorf("%w: %d", ErrInvalidMaxFrameSize, h.MaxCompressedFrameSize)
	}
	return nil
}

// SizeBound returns the largest payload a reader should accept given the
// recorded maximum. An unset maximum falls back to the absolute ceiling.
func SizeBound(recordedMax uint32) uint32 {
	if recordedMax == 0 {
		return MaxCompressedFrameSize
	}
	return recordedMax
}
