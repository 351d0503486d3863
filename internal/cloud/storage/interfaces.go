// Package storage defines the contract every object storage backend implements
// and the error vocabulary shared across backends.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/objectdesk/objectdesk/internal/models"
)

// ListRequest is one delimiter-separated listing call.
type ListRequest struct {
	Bucket            string
	Prefix            string
	Delimiter         string
	MaxKeys           int
	ContinuationToken string
}

// Lister performs one paged listing call per invocation.
// A returned error is the failure result; the page is nil in that case.
type Lister interface {
	ListPage(ctx context.Context, req ListRequest) (*models.Page, error)
}

// ObjectInfo is the metadata returned by Head.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// ObjectStore is the full surface the file operations need.
type ObjectStore interface {
	Lister

	// ListBuckets returns the buckets (or containers) visible to the credentials.
	ListBuckets(ctx context.Context) ([]models.Bucket, error)

	// Head returns object metadata; missing objects yield ErrNotFound.
	Head(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// Get opens the object body. The caller closes the reader.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectInfo, error)

	// Put uploads size bytes from body to key.
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error

	// Delete removes a single key.
	Delete(ctx context.Context, bucket, key string) error

	// Copy duplicates srcKey to dstKey within a bucket.
	Copy(ctx context.Context, bucket, srcKey, dstKey string) error

	// Backend names the implementation ("s3", "azure").
	Backend() string
}
