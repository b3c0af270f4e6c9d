package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hupe1980/framecache/cachedir"
	ifs "github.com/hupe1980/framecache/internal/fs"
	"github.com/hupe1980/framecache/resource"
)

// ErrShortTransfer is returned when a copy moved fewer bytes than the blob holds.
var ErrShortTransfer = errors.New("blobstore: short transfer")

// Mirror copies cache files between a local directory and a BlobStore.
// Transfers are throttled by the resource controller, which may be nil.
type Mirror struct {
	store  BlobStore
	rc     *resource.Controller
	fs     ifs.FileSystem
	logger *slog.Logger
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithMirrorFileSystem sets the file system used for local files.
func WithMirrorFileSystem(fsys ifs.FileSystem) MirrorOption {
	return func(m *Mirror) { m.fs = ifs.OrDefault(fsys) }
}

// WithMirrorLogger sets the logger.
func WithMirrorLogger(l *slog.Logger) MirrorOption {
	return func(m *Mirror) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMirror creates a Mirror over store.
func NewMirror(store BlobStore, rc *resource.Controller, opts ...MirrorOption) *Mirror {
	m := &Mirror{
		store:  store,
		rc:     rc,
		fs:     ifs.Default,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying BlobStore.
func (m *Mirror) Store() BlobStore { return m.store }

// Fetch downloads the blob name into dstPath. The file appears under
// dstPath only once it is complete. Missing blobs return ErrNotFound.
func (m *Mirror) Fetch(ctx context.Context, name, dstPath string) (err error) {
	blob, err := m.store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer blob.Close()

	size := blob.Size()

	var src io.Reader
	if rr, ok := blob.(RangeReader); ok && size > 0 {
		body, err := rr.ReadRange(ctx, 0, size)
		if err != nil {
			return fmt.Errorf("blobstore: fetch %s: %w", name, err)
		}
		defer body.Close()
		src = body
	} else {
		src = io.NewSectionReader(blob, 0, size)
	}

	tmp, err := m.fs.CreateTemp(filepath.Dir(dstPath), cachedir.TempPrefix+"fetch-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = m.fs.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, resource.NewRateLimitedReader(ctx, src, m.rc))
	if err != nil {
		return fmt.Errorf("blobstore: fetch %s: %w", name, err)
	}
	if n != size {
		return fmt.Errorf("blobstore: fetch %s: got %d of %d bytes: %w", name, n, size, ErrShortTransfer)
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = m.fs.Rename(tmpName, dstPath); err != nil {
		return err
	}

	m.logger.Debug("fetched cache file", "name", name, "path", dstPath, "bytes", n)
	return nil
}

// Publish uploads the local file srcPath as blob name. A failed upload is
// aborted where the store supports it so no partial blob becomes visible.
func (m *Mirror) Publish(ctx context.Context, name, srcPath string) error {
	f, err := m.fs.OpenFile(srcPath, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := m.store.Create(ctx, name)
	if err != nil {
		return err
	}

	n, err := io.Copy(resource.NewRateLimitedWriter(ctx, w, m.rc), f)
	if err == nil {
		err = w.Sync()
	}
	if err != nil {
		if a, ok := w.(Aborter); ok {
			_ = a.Abort()
		} else {
			_ = w.Close()
		}
		return fmt.Errorf("blobstore: publish %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("blobstore: publish %s: %w", name, err)
	}

	m.logger.Debug("published cache file", "name", name, "path", srcPath, "bytes", n)
	return nil
}
