package mmap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	// ErrClosed is returned by a Region after Close.
	ErrClosed = errors.New("mmap: region closed")
	// ErrRange is returned for sections outside the mapped file.
	ErrRange = errors.New("mmap: section out of range")
)

// Region is a read-only view of a whole file.
type Region struct {
	mu     sync.RWMutex
	data   []byte
	closed bool
	// release undoes the mapping; nil when nothing needs undoing.
	release func([]byte) error
}

// Map opens path and maps its full contents. Empty files yield an empty
// Region without a mapping.
func Map(path string) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	switch {
	case size == 0:
		return &Region{}, nil
	case int64(int(size)) != size:
		return nil, fmt.Errorf("mmap: %s: %d bytes exceed the address space", path, size)
	}

	data, release, err := mapFile(f, int(size))
	if err != nil {
		return nil, fmt.Errorf("mmap: %s: %w", path, err)
	}
	return &Region{data: data, release: release}, nil
}

// Len returns the mapped length.
func (r *Region) Len() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.data))
}

// Bytes returns the whole mapping, or nil once closed.
func (r *Region) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil
	}
	return r.data
}

// Section returns n bytes at off without copying. The slice must not be
// used after Close.
func (r *Region) Section(off, n int64) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}
	if off < 0 || n < 0 || off > int64(len(r.data)) || n > int64(len(r.data))-off {
		return nil, fmt.Errorf("%w: [%d, %d+%d) of %d", ErrRange, off, off, n, len(r.data))
	}
	return r.data[off : off+n], nil
}

// ReadAt implements io.ReaderAt.
func (r *Region) ReadAt(p []byte, off int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrRange, off)
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Sequential hints that the region will be read front to back once.
func (r *Region) Sequential() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.closed {
		adviseSequential(r.data)
	}
}

// Close releases the mapping. Further calls are no-ops.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	data := r.data
	r.data = nil
	if r.release == nil || data == nil {
		return nil
	}
	return r.release(data)
}
