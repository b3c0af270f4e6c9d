package fs

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the error returned by injected faults when Fault.Err is nil.
var ErrInjected = errors.New("injected fault error")

// Fault defines specific failure behavior.
// Limits are disabled when zero or negative.
type Fault struct {
	FailOnOpen  bool
	FailOnSeek  bool
	FailOnSync  bool
	FailOnClose bool
	// WriteLimit fails writes once this many bytes were written to the file.
	WriteLimit int64
	// ReadLimit makes the file look truncated at this absolute offset.
	ReadLimit int64
	Err       error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

type rule struct {
	pattern string
	fault   Fault
}

// FaultyFS is a FileSystem wrapper that can inject errors.
// Rules are evaluated on every operation, so faults can be toggled while
// files are open.
type FaultyFS struct {
	FS FileSystem

	mu      sync.Mutex
	rules   []rule
	written int64
	opens   int64
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	return &FaultyFS{FS: OrDefault(fsys)}
}

// AddRule adds a fault injection rule for file names containing pattern.
// The last matching rule wins.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{pattern: pattern, fault: fault})
}

// ClearRules removes all fault injection rules.
func (f *FaultyFS) ClearRules() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = nil
}

// Written returns the total bytes written through this FileSystem.
func (f *FaultyFS) Written() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

// Opens returns the number of successful OpenFile/CreateTemp calls.
func (f *FaultyFS) Opens() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *FaultyFS) faultFor(name string) Fault {
	f.mu.Lock()
	defer f.mu.Unlock()
	var fault Fault
	for _, r := range f.rules {
		if strings.Contains(name, r.pattern) {
			fault = r.fault
		}
	}
	return fault
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	if fault := f.faultFor(name); fault.FailOnOpen {
		return nil, &os.PathError{Op: "open", Path: name, Err: fault.err()}
	}
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.opens++
	f.mu.Unlock()
	return &faultyFile{File: file, fs: f}, nil
}

func (f *FaultyFS) CreateTemp(dir, pattern string) (File, error) {
	file, err := f.FS.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.opens++
	f.mu.Unlock()
	return &faultyFile{File: file, fs: f}, nil
}

func (f *FaultyFS) Remove(name string) error {
	return f.FS.Remove(name)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	return f.FS.Stat(name)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) {
	return f.FS.ReadDir(name)
}

type faultyFile struct {
	File
	fs      *FaultyFS
	pos     int64
	written int64
}

func (ff *faultyFile) Read(p []byte) (int, error) {
	fault := ff.fs.faultFor(ff.Name())
	if fault.ReadLimit > 0 {
		if ff.pos >= fault.ReadLimit {
			return 0, io.EOF
		}
		if rest := fault.ReadLimit - ff.pos; int64(len(p)) > rest {
			p = p[:rest]
		}
	}
	n, err := ff.File.Read(p)
	ff.pos += int64(n)
	return n, err
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	fault := ff.fs.faultFor(ff.Name())
	if fault.WriteLimit > 0 && ff.written+int64(len(p)) > fault.WriteLimit {
		return 0, fault.err()
	}
	n, err := ff.File.Write(p)
	ff.pos += int64(n)
	ff.written += int64(n)
	ff.fs.mu.Lock()
	ff.fs.written += int64(n)
	ff.fs.mu.Unlock()
	return n, err
}

func (ff *faultyFile) Seek(offset int64, whence int) (int64, error) {
	if fault := ff.fs.faultFor(ff.Name()); fault.FailOnSeek {
		return ff.pos, fault.err()
	}
	pos, err := ff.File.Seek(offset, whence)
	if err == nil {
		ff.pos = pos
	}
	return pos, err
}

func (ff *faultyFile) Sync() error {
	if fault := ff.fs.faultFor(ff.Name()); fault.FailOnSync {
		return fault.err()
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if fault := ff.fs.faultFor(ff.Name()); fault.FailOnClose {
		_ = ff.File.Close()
		return fault.err()
	}
	return ff.File.Close()
}
