package cachedir

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/framecache/internal/fs"
)

// Ext is the file extension of cache files.
const Ext = ".fcache"

// TempPrefix prefixes temporary files written into the directory. Leftovers
// from an interrupted process are removed by Open.
const TempPrefix = ".tmp-"

var (
	// ErrInvalidKey is returned for keys that are not plain file names.
	ErrInvalidKey = errors.New("cachedir: invalid key")
	// ErrPinned is returned when removing a file that is in use.
	ErrPinned = errors.New("cachedir: entry is pinned")
	// ErrNotAcquired is returned by Release for keys that are not pinned.
	ErrNotAcquired = errors.New("cachedir: entry not acquired")
)

// Config holds configuration for a cache directory.
type Config struct {
	// Root is the directory holding the cache files. It is created if missing.
	Root string
	// MaxSizeBytes is the size budget. Zero or negative means unlimited.
	MaxSizeBytes int64
	// FS defaults to the local file system.
	FS fs.FileSystem
	// Logger defaults to a logger that discards everything.
	Logger *slog.Logger
}

// Stats is a snapshot of the directory index.
type Stats struct {
	Entries   int
	SizeBytes int64
	Pinned    int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Dir is a size-bounded directory of cache files.
type Dir struct {
	mu          sync.Mutex
	root        string
	maxSize     int64
	currentSize int64
	fs          fs.FileSystem
	logger      *slog.Logger

	items   map[string]*lruEntry
	lruHead *lruEntry
	lruTail *lruEntry

	hits      int64
	misses    int64
	evictions int64
}

type lruEntry struct {
	key        string
	size       int64
	filePath   string
	pins       int
	doomed     bool
	next, prev *lruEntry
}

// Open opens or creates the cache directory described by cfg and indexes
// the cache files already present.
func Open(cfg Config) (*Dir, error) {
	if cfg.Root == "" {
		return nil, errors.New("cachedir: empty root")
	}
	fsys := fs.OrDefault(cfg.FS)
	if err := fsys.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	d := &Dir{
		root:    cfg.Root,
		maxSize: cfg.MaxSizeBytes,
		fs:      fsys,
		logger:  logger.With("dir", cfg.Root),
		items:   make(map[string]*lruEntry),
	}
	if err := d.scanExistingFiles(); err != nil {
		return nil, err
	}
	return d, nil
}

// Root returns the directory path.
func (d *Dir) Root() string { return d.root }

func (d *Dir) scanExistingFiles() error {
	entries, err := d.fs.ReadDir(d.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		path := filepath.Join(d.root, name)
		if strings.HasPrefix(name, TempPrefix) {
			if err := d.fs.Remove(path); err != nil {
				d.logger.Warn("removing stale temp file", "file", name, "error", err)
			}
			continue
		}
		key, ok := strings.CutSuffix(name, Ext)
		if !ok || validateKey(key) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		// ReadDir order is by name; without access times every file starts
		// equally old.
		d.addToLRU(key, path, info.Size())
	}
	d.logger.Debug("cache directory indexed", "entries", len(d.items), "size", d.currentSize)
	return nil
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, TempPrefix) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Path returns the file path for key without touching the index.
func (d *Dir) Path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(d.root, key+Ext), nil
}

// Acquire pins key and returns its file path. The file need not exist yet;
// the caller may build it and report its size with Commit or Release.
func (d *Dir) Acquire(key string) (string, error) {
	path, err := d.Path(key)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ent, ok := d.items[key]
	if ok && ent.size > 0 {
		d.hits++
	} else {
		d.misses++
	}
	if !ok {
		d.addToLRU(key, path, 0)
		ent = d.items[key]
	}
	ent.pins++
	d.moveToFront(ent)
	return path, nil
}

// Release unpins key. With discard set the file is deleted as soon as no
// other holder pins it; otherwise its size is refreshed from disk and the
// budget enforced.
func (d *Dir) Release(key string, discard bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ent, ok := d.items[key]
	if !ok || ent.pins == 0 {
		return fmt.Errorf("%w: %q", ErrNotAcquired, key)
	}
	ent.pins--
	if discard {
		ent.doomed = true
	}
	if ent.pins > 0 {
		return nil
	}
	if ent.doomed {
		d.logger.Info("discarding unreliable cache file", "key", key)
		return d.deleteEntry(ent)
	}
	if err := d.refresh(ent); err != nil {
		return err
	}
	d.evictOverBudget(nil)
	return nil
}

// Commit records the current on-disk size of key and evicts least recently
// used unpinned files while the directory is over budget.
func (d *Dir) Commit(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ent, ok := d.items[key]
	if !ok {
		path := filepath.Join(d.root, key+Ext)
		d.addToLRU(key, path, 0)
		ent = d.items[key]
	}
	if err := d.refresh(ent); err != nil {
		return err
	}
	d.moveToFront(ent)
	d.evictOverBudget(ent)
	return nil
}

// Remove deletes the file for key unless it is pinned.
func (d *Dir) Remove(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ent, ok := d.items[key]
	if !ok {
		return nil
	}
	if ent.pins > 0 {
		return fmt.Errorf("%w: %q", ErrPinned, key)
	}
	return d.deleteEntry(ent)
}

// Prune evicts unpinned files until the directory fits its budget and
// returns how many files were removed.
func (d *Dir) Prune() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.evictOverBudget(nil)
}

// SetMaxSize changes the size budget. It does not evict; call Prune.
func (d *Dir) SetMaxSize(n int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.maxSize = n
}

// Keys returns the indexed keys, most recently used first.
func (d *Dir) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	keys := make([]string, 0, len(d.items))
	for e := d.lruHead; e != nil; e = e.next {
		keys = append(keys, e.key)
	}
	return keys
}

// Stats returns a snapshot of the index.
func (d *Dir) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Stats{
		Entries:   len(d.items),
		SizeBytes: d.currentSize,
		Hits:      d.hits,
		Misses:    d.misses,
		Evictions: d.evictions,
	}
	for _, e := range d.items {
		if e.pins > 0 {
			st.Pinned++
		}
	}
	return st
}

// Internal LRU helpers (must hold lock)

// refresh updates ent from the file on disk. A missing file drops the entry.
func (d *Dir) refresh(ent *lruEntry) error {
	info, err := d.fs.Stat(ent.filePath)
	if errors.Is(err, os.ErrNotExist) {
		if ent.pins == 0 {
			d.removeEntry(ent)
		} else {
			d.resize(ent, 0)
		}
		return nil
	}
	if err != nil {
		return err
	}
	d.resize(ent, info.Size())
	return nil
}

func (d *Dir) resize(ent *lruEntry, size int64) {
	d.currentSize += size - ent.size
	ent.size = size
}

func (d *Dir) deleteEntry(ent *lruEntry) error {
	d.removeEntry(ent)
	if err := d.fs.Remove(ent.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// evictOverBudget removes unpinned entries other than keep from the LRU
// tail while the directory is over budget.
func (d *Dir) evictOverBudget(keep *lruEntry) int {
	if d.maxSize <= 0 {
		return 0
	}
	evicted := 0
	for ent := d.lruTail; ent != nil && d.currentSize > d.maxSize; {
		prev := ent.prev
		if ent.pins == 0 && ent != keep {
			if err := d.deleteEntry(ent); err != nil {
				d.logger.Warn("evicting cache file", "key", ent.key, "error", err)
			} else {
				d.logger.Debug("evicted cache file", "key", ent.key, "size", ent.size)
			}
			d.evictions++
			evicted++
		}
		ent = prev
	}
	return evicted
}

func (d *Dir) addToLRU(key, path string, size int64) {
	ent := &lruEntry{
		key:      key,
		filePath: path,
		size:     size,
	}
	d.items[key] = ent
	d.currentSize += size

	// Push Front
	if d.lruHead == nil {
		d.lruHead = ent
		d.lruTail = ent
	} else {
		ent.next = d.lruHead
		d.lruHead.prev = ent
		d.lruHead = ent
	}
}

func (d *Dir) moveToFront(ent *lruEntry) {
	if d.lruHead == ent {
		return
	}

	// Detach
	if ent.prev != nil {
		ent.prev.next = ent.next
	}
	if ent.next != nil {
		ent.next.prev = ent.prev
	}
	if d.lruTail == ent {
		d.lruTail = ent.prev
	}

	// Attach Front
	ent.next = d.lruHead
	ent.prev = nil
	if d.lruHead != nil {
		d.lruHead.prev = ent
	}
	d.lruHead = ent
	if d.lruTail == nil {
		d.lruTail = ent
	}
}

func (d *Dir) removeEntry(ent *lruEntry) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		d.lruHead = ent.next
	}

	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		d.lruTail = ent.prev
	}

	ent.prev, ent.next = nil, nil
	delete(d.items, ent.key)
	d.currentSize -= ent.size
}
