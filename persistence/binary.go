package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var byteOrder = binary.LittleEndian

// ReadHeader reads the fixed-size file header.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, shortRead(err)
	}
	return Header{
		Magic:                  byteOrder.Uint32(buf[0:]),
		FrameCount:             byteOrder.Uint32(buf[4:]),
		MaxCompressedFrameSize: byteOrder.Uint32(buf[8:]),
	}, nil
}

// WriteHeader writes the fixed-size file header.
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	byteOrder.PutUint32(buf[0:], h.Magic)
	byteOrder.PutUint32(buf[4:], h.FrameCount)
	byteOrder.PutUint32(buf[8:], h.MaxCompressedFrameSize)
	_, err := w.Write(buf[:])
	return err
}

// ReadRecordSize reads the length prefix of the next record.
func ReadRecordSize(r io.Reader) (uint32, error) {
	var buf [RecordHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, shortRead(err)
	}
	return byteOrder.Uint32(buf[:]), nil
}

// WriteRecord writes one record: the payload length followed by the payload.
// An empty payload writes a zero-length (skipped) record.
func WriteRecord(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > MaxCompressedFrameSize {
		return fmt.Errorf("%w: %d", ErrFrameTooLarge, len(payload))
	}
	var buf [RecordHeaderSize]byte
	byteOrder.PutUint32(buf[:], uint32(len(payload)))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// ReadPayload fills buf with the next record payload.
func ReadPayload(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return shortRead(err)
	}
	return nil
}

// SkipPayload moves s past a record payload of the given size without reading it.
func SkipPayload(s io.Seeker, size uint32) error {
	if size == 0 {
		return nil
	}
	_, err := s.Seek(int64(size), io.SeekCurrent)
	return err
}

// PatchMaxFrameSize overwrites the maxCompressedFrameSize header field in place.
// The stream position is left right after the patched field.
func PatchMaxFrameSize(ws io.WriteSeeker, size uint32) error {
	if _, err := ws.Seek(maxFrameSizeOffset, io.SeekStart); err != nil {
		return err
	}
	var buf [4]byte
	byteOrder.PutUint32(buf[:], size)
	_, err := ws.Write(buf[:])
	return err
}

// RecordOffset returns the absolute offset of the record following a first
// record with the given payload size.
func RecordOffset(firstFrameSize uint32) int64 {
	return HeaderSize + RecordHeaderSize + int64(firstFrameSize)
}

func shortRead(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return err
}
