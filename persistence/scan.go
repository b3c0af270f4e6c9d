package persistence

import (
	"fmt"
	"io"
)

// Record describes one record found while walking a cache file.
type Record struct {
	Index uint32
	// Offset is the absolute offset of the record's length prefix.
	Offset int64
	Size   uint32
}

// ScanResult summarizes a successful verification scan.
type ScanResult struct {
	Records        uint32
	Stored         uint32
	FirstFrameSize uint32
	MaxFrameSize   uint32
	End            int64
}

// Scan verifies the record section of a cache file whose header h was just
// read from r, so r is positioned at HeaderSize. Each record's length is read
// and its payload skipped. size is the total file size, or a negative value
// when unknown.
//
// canceled, when non-nil, is polled once before every record and never
// while a record is being read. A true result aborts the scan with
// ErrCanceled.
//
// The scan succeeds only if exactly h.FrameCount records fit the file,
// no record exceeds h.MaxCompressedFrameSize, and (when size is known) the
// last record ends exactly at end of file.
func Scan(r io.ReadSeeker, size int64, h Header, canceled func() bool) (ScanResult, error) {
	var res ScanResult
	pos := int64(HeaderSize)
	for res.Records < h.FrameCount {
		if canceled != nil && canceled() {
			return res, ErrCanceled
		}
		n, err := ReadRecordSize(r)
		if err != nil {
			return res, fmt.Errorf("record %d of %d: %w", res.Records, h.FrameCount, err)
		}
		if n > h.MaxCompressedFrameSize {
			return res, fmt.Errorf("record %d: %w: %d > %d", res.Records, ErrFrameTooLarge, n, h.MaxCompressedFrameSize)
		}
		next := pos + RecordHeaderSize + int64(n)
		if size >= 0 && next > size {
			return res, fmt.Errorf("record %d: %w: payload ends at %d, file size %d", res.Records, ErrTruncated, next, size)
		}
		if err := SkipPayload(r, n); err != nil {
			return res, fmt.Errorf("record %d: %w", res.Records, err)
		}
		if res.Records == 0 {
			res.FirstFrameSize = n
		}
		if n > 0 {
			res.Stored++
		}
		res.MaxFrameSize = max(res.MaxFrameSize, n)
		res.Records++
		pos = next
	}
	if canceled != nil && canceled() {
		return res, ErrCanceled
	}
	if size >= 0 && pos != size {
		return res, fmt.Errorf("%w: %d trailing bytes after %d records", ErrRecordCount, size-pos, res.Records)
	}
	res.End = pos
	return res, nil
}

// Walk calls fn for each of the h.FrameCount records following the header.
// r must be positioned at HeaderSize. Walk stops at the first error returned
// by fn or encountered while reading.
func Walk(r io.ReadSeeker, h Header, fn func(Record) error) error {
	pos := int64(HeaderSize)
	for i := uint32(0); i < h.FrameCount; i++ {
		n, err := ReadRecordSize(r)
		if err != nil {
			return fmt.Errorf("record %d of %d: %w", i, h.FrameCount, err)
		}
		if n > MaxCompressedFrameSize {
			return fmt.Errorf("record %d: %w: %d", i, ErrFrameTooLarge, n)
		}
		if err := fn(Record{Index: i, Offset: pos, Size: n}); err != nil {
			return err
		}
		if err := SkipPayload(r, n); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		pos += RecordHeaderSize + int64(n)
	}
	return nil
}
