// Package storage provides the blob store used for document bytes. The core
// only ever needs three operations, so the interface stays deliberately small
// and tests can substitute a fake.
package storage

import (
	"context"
	"io"
	"net/url"
	"time"
)

// BlobStore is the document byte store consumed by the documents service.
type BlobStore interface {
	// Put streams an object to the store under the given key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// SignedURL returns a time-limited URL granting read access to the object.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (*url.URL, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
