// Package minio implements blobstore.BlobStore on MinIO and other
// S3-compatible services.
package minio
