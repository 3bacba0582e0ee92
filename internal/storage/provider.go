// Package storage defines the blob abstraction the checkpoint table is persisted through.
// Implementations live in the local, gcs, and memory subpackages.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by GetObject when no object exists at the path.
var ErrNotFound = errors.New("object not found")

// BlobStore reads and atomically replaces whole objects.
type BlobStore interface {
	// GetObject returns the full object contents or ErrNotFound.
	GetObject(ctx context.Context, path string) ([]byte, error)
	// PutObject replaces the object. Readers observe either the previous or the new
	// contents, never a partial write. It returns a URI naming the object.
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}
