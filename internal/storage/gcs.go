package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/desertthunder/soundpost/internal/shared"
)

// GCSStore uploads to a Cloud Storage bucket and returns Firebase-style download URLs.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

// NewGCSStore creates a Cloud Storage client for bucket.
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: storage bucket is required for the gcs backend", shared.ErrMissingConfig)
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Upload writes the object with its content type.
func (s *GCSStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload %s: %w", path, err)
	}
	return nil
}

// DownloadURL checks the object exists and returns its public media URL.
func (s *GCSStore) DownloadURL(ctx context.Context, path string) (string, error) {
	if _, err := s.client.Bucket(s.bucket).Object(path).Attrs(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return "", fmt.Errorf("%w: object %s", shared.ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to read object attrs: %w", err)
	}
	return gcsMediaURL(s.bucket, path), nil
}

// Close closes the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func gcsMediaURL(bucket, path string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media", bucket, url.PathEscape(path))
}
