package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
)

// GCSStore stores objects in a Google Cloud Storage bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
	logger *slog.Logger
}

// NewGCSStore wraps an existing client so the two binaries can share one
// connection per process.
func NewGCSStore(client *storage.Client, bucketName string, logger *slog.Logger) *GCSStore {
	return &GCSStore{
		bucket: client.Bucket(bucketName),
		name:   bucketName,
		logger: logger,
	}
}

// Download returns the full contents of the object at key.
func (s *GCSStore) Download(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	s.logger.Debug("Object downloaded",
		slog.String("bucket", s.name),
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)

	return data, nil
}

// Upload writes data to key with the given content type.
func (s *GCSStore) Upload(ctx context.Context, key, contentType string, data []byte) error {
	writer := s.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %s: %w", key, err)
	}

	s.logger.Debug("Object uploaded",
		slog.String("bucket", s.name),
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)

	return nil
}

// SignedUploadURL issues a V4 signed PUT URL for a client-side upload.
func (s *GCSStore) SignedUploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	url, err := s.bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign upload URL for %s: %w", key, err)
	}
	return url, nil
}

var (
	_ Store     = (*GCSStore)(nil)
	_ Presigner = (*GCSStore)(nil)
)
