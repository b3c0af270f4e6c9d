// Package cachedir manages a directory of frame cache files under a size
// budget.
//
// Every cache file is addressed by a key, stored as <root>/<key>.fcache, and
// tracked in an in-memory LRU index rebuilt from the directory on Open.
// Sessions pin the files they read; pinned files are never evicted. A file
// released with discard set (a session that saw read errors) is deleted.
package cachedir
