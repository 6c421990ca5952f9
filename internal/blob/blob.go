// Package blob abstracts the object store holding original uploads and their
// derived renditions.
package blob

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist in the store.
var ErrObjectNotFound = errors.New("object not found")

// Store is the object-store port used by the upload and processing paths.
type Store interface {
	// Download returns the full contents of the object at key.
	Download(ctx context.Context, key string) ([]byte, error)

	// Upload writes data to key with the given content type.
	Upload(ctx context.Context, key, contentType string, data []byte) error
}

// Presigner issues time-limited upload URLs for client-side PUTs. Issuance
// mechanics live behind this port; the pipeline only consumes the URL.
type Presigner interface {
	SignedUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}
