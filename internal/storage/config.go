package storage

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/desertthunder/soundpost/internal/shared"
)

// FromConfig builds the configured backend. Google client options are used by the gcs backend only.
func FromConfig(ctx context.Context, cfg *shared.Config, googleOpts ...option.ClientOption) (ObjectStore, error) {
	switch cfg.Storage.Kind {
	case "", "local":
		return NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicURL)
	case "gcs":
		bucket := cfg.Storage.Bucket
		if bucket == "" {
			bucket = cfg.Firebase.StorageBucket
		}
		return NewGCSStore(ctx, bucket, googleOpts...)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.Storage.Bucket,
			PublicURL:       cfg.Storage.PublicURL,
			Endpoint:        cfg.Storage.S3Endpoint,
			Region:          cfg.Storage.S3Region,
			AccessKeyID:     cfg.Storage.S3AccessKeyID,
			SecretAccessKey: cfg.Storage.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("%w: unknown storage kind %q", shared.ErrInvalidConfig, cfg.Storage.Kind)
	}
}
