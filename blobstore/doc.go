// Package blobstore mirrors finished cache files to shared storage.
//
// A frame cache file is immutable once built, so a fleet of machines can
// share them: one machine builds and publishes, the others fetch instead of
// rendering every frame themselves.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory, for tests
//   - LocalStore: local file system with mmap-backed reads
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)           // Open for reading
//	    Create(ctx, name) (WritableBlob, error) // Create for streaming writes
//	    Put(ctx, name, data) error              // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Remote backends should also implement RangeReader so that a Mirror can
// stream a whole file with a single request.
package blobstore
