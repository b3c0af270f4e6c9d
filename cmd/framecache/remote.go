package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hupe1980/framecache/blobstore"
	"github.com/hupe1980/framecache/blobstore/minio"
	"github.com/hupe1980/framecache/blobstore/s3"
)

// openRemote parses a remote URI into a BlobStore:
//
//	s3://bucket/prefix                  AWS credentials from the environment
//	minio://host:port/bucket/prefix     MINIO_* credentials; ?secure=true for TLS
//	file:///path/to/dir                 a local directory
func openRemote(ctx context.Context, uri string) (blobstore.BlobStore, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("remote %q: %w", uri, err)
	}

	switch u.Scheme {
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("remote %q: missing bucket", uri)
		}
		return s3.NewFromEnv(ctx, u.Host, strings.Trim(u.Path, "/"))
	case "minio":
		bucket, prefix, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
		if u.Host == "" || bucket == "" {
			return nil, fmt.Errorf("remote %q: want minio://host/bucket[/prefix]", uri)
		}
		secure := false
		if v := u.Query().Get("secure"); v != "" {
			if secure, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("remote %q: secure: %w", uri, err)
			}
		}
		return minio.NewFromEnv(u.Host, secure, bucket, prefix)
	case "file":
		if u.Path == "" {
			return nil, fmt.Errorf("remote %q: missing path", uri)
		}
		return blobstore.NewLocalStore(u.Path), nil
	default:
		return nil, fmt.Errorf("remote %q: unsupported scheme %q", uri, u.Scheme)
	}
}
