// Package qart stores registered run files as blobs in S3-compatible storage.
package qart

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"time"
)

// Object describes a stored blob.
type Object struct {
	Key          string            `json:"key"`    // e.g. "files/<sha256>/m84202.hifi_reads.bc2004.bam"
	Bucket       string            `json:"bucket"` // empty for the memory store
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Store defines the blob operations the file store needs.
type Store interface {
	// Upload writes size bytes from reader under key. A negative size streams
	// until EOF.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) (*Object, error)

	// Stat returns ErrNotFound when key does not exist.
	Stat(ctx context.Context, key string) (*Object, error)

	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// EnsureBucket ensures the bucket exists, creating it if necessary.
	EnsureBucket(ctx context.Context) error
}

// ContentKey addresses a file by its sha256 digest so identical content is
// stored once.
func ContentKey(sha256Hex, filename string) string {
	return path.Join("files", sha256Hex, filepath.Base(filename))
}
