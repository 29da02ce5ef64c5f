package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// DocumentFetcher returns the text of the document at location.
type DocumentFetcher interface {
	Fetch(ctx context.Context, location string) (string, error)
}

// ObjectReader reads one object from a bucket-style store.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// Config carries object-storage credentials. Stores without credentials are
// unavailable; filesystem paths always work.
type Config struct {
	S3KeyID    string
	S3Secret   string
	S3Endpoint string
	S3Region   string

	GCSKeyFile string

	AzureAccount string
	AzureKey     string
}

// Fetcher implements DocumentFetcher. Object-store clients are created on
// first use and reused afterwards.
type Fetcher struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	readers map[Scheme]ObjectReader
}

var _ DocumentFetcher = (*Fetcher)(nil)

// NewFetcher creates a Fetcher.
func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{cfg: cfg, logger: logger, readers: make(map[Scheme]ObjectReader)}
}

// WithReader installs r for scheme in place of the default client.
func (f *Fetcher) WithReader(scheme Scheme, r ObjectReader) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readers[scheme] = r
	return f
}

// Fetch reads the document at location.
func (f *Fetcher) Fetch(ctx context.Context, location string) (string, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return "", err
	}

	if loc.Scheme == SchemeFile {
		data, err := os.ReadFile(loc.Key) //nolint:gosec // intentional: reading user-specified model file
		if err != nil {
			return "", fmt.Errorf("read %s: %w", loc.Key, err)
		}
		return string(data), nil
	}

	r, err := f.reader(ctx, loc.Scheme)
	if err != nil {
		return "", err
	}
	data, err := r.ReadObject(ctx, loc.Bucket, loc.Key)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", loc, err)
	}
	f.logger.Debug("fetched semantic model", "location", loc.String(), "bytes", len(data))
	return string(data), nil
}

func (f *Fetcher) reader(ctx context.Context, scheme Scheme) (ObjectReader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.readers[scheme]; ok {
		return r, nil
	}

	var (
		r   ObjectReader
		err error
	)
	switch scheme {
	case SchemeS3:
		r, err = NewS3Reader(f.cfg)
	case SchemeGCS:
		r, err = NewGCSReader(ctx, f.cfg)
	case SchemeAzure:
		r, err = NewAzureReader(f.cfg)
	default:
		err = fmt.Errorf("no reader for scheme %q", scheme)
	}
	if err != nil {
		return nil, err
	}
	f.readers[scheme] = r
	return r, nil
}
