package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Reader reads objects from S3-compatible storage.
type S3Reader struct {
	client *s3.Client
}

// NewS3Reader creates an S3Reader from static credentials. A custom endpoint
// switches to path-style addressing, which most S3-compatible stores require.
func NewS3Reader(cfg Config) (*S3Reader, error) {
	if cfg.S3KeyID == "" || cfg.S3Secret == "" {
		return nil, fmt.Errorf("S3 credentials are not configured (S3_KEY_ID, S3_SECRET)")
	}
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}

	opts := s3.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.S3KeyID, cfg.S3Secret, ""),
	}
	if cfg.S3Endpoint != "" {
		endpoint := cfg.S3Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return &S3Reader{client: s3.New(opts)}, nil
}

// ReadObject implements ObjectReader.
func (r *S3Reader) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("GetObject s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close() //nolint:errcheck
	return io.ReadAll(out.Body)
}
