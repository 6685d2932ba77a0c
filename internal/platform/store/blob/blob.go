// Package blob is the object store seam: get, put, list and delete by bucket and key.
// The S3 implementation is backed by minio-go; Memory serves tests and dry runs.
package blob

import (
	"context"
	"errors"
	"strings"

	perr "tulflow/internal/platform/errors"
)

// Store reads and writes objects addressed by bucket and key
type Store interface {
	// Get returns the object body. A missing object yields an error matching ErrNotFound,
	// every other failure carries perr.ErrorCodeStorage
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put writes body at key, replacing any previous object
	Put(ctx context.Context, bucket, key string, body []byte, contentType string) error

	// List returns every key under prefix, recursively
	List(ctx context.Context, bucket, prefix string) ([]string, error)

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, bucket, key string) error

	// Ping checks that bucket is reachable
	Ping(ctx context.Context, bucket string) error
}

// ErrNotFound is returned (wrapped) by Get when the key does not exist
var ErrNotFound = perr.New(perr.ErrorCodeNotFound, "blob: object not found")

// IsNotFound reports whether err means the object is absent
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || perr.IsCode(err, perr.ErrorCodeNotFound)
}

// Config configures the S3 connection (SERVICE_S3_*)
type Config struct {
	Enabled   bool
	Endpoint  string // host:port or URL
	AccessKey string
	SecretKey string
	Region    string // default us-east-1
	Secure    bool
	Bucket    string // default bucket for callers that don't name one
}

// Join builds an object key from non-empty parts without doubled slashes
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}
