package source

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSReader reads objects from Google Cloud Storage.
type GCSReader struct {
	client *storage.Client
}

// NewGCSReader creates a GCSReader authenticated with a service-account key file.
func NewGCSReader(ctx context.Context, cfg Config) (*GCSReader, error) {
	if cfg.GCSKeyFile == "" {
		return nil, fmt.Errorf("GCS credentials are not configured (GCS_KEY_FILE)")
	}
	client, err := storage.NewClient(ctx, option.WithAuthCredentialsFile(option.ServiceAccount, cfg.GCSKeyFile))
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSReader{client: client}, nil
}

// ReadObject implements ObjectReader.
func (r *GCSReader) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	rc, err := r.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, key, err)
	}
	defer rc.Close() //nolint:errcheck
	return io.ReadAll(rc)
}
