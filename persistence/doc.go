// Package persistence defines the on-disk layout of a frame cache file and
// provides pure encode/decode/scan functions over io streams.
//
// Layout (little-endian, no padding):
//
//	offset 0:  u32 magic                   MagicNormal | MagicReduced
//	offset 4:  u32 frameCount
//	offset 8:  u32 maxCompressedFrameSize  0 while the file is being built
//	offset 12: frameCount records:
//	             u32 compressedSize
//	             u8  payload[compressedSize]   absent when compressedSize == 0
//
// A zero-length record is a frame that was not stored (every odd frame of a
// reduced-rate file) and must be rendered live.
//
// Nothing in this package touches the filesystem; callers hand in readers,
// writers and seekers. This keeps the format testable against in-memory
// buffers.
package persistence
