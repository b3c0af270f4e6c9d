// Package s3 implements blobstore.BlobStore on Amazon S3.
//
// Reads use ranged GetObject requests. Writes stream through the multipart
// upload manager, so a Mirror can publish a cache file without buffering it.
package s3
