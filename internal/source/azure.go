package source

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureReader reads blobs from Azure Blob Storage with a shared account key.
type AzureReader struct {
	client *azblob.Client
}

// NewAzureReader creates an AzureReader.
func NewAzureReader(cfg Config) (*AzureReader, error) {
	if cfg.AzureAccount == "" || cfg.AzureKey == "" {
		return nil, fmt.Errorf("azure credentials are not configured (AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY)")
	}
	cred, err := azblob.NewSharedKeyCredential(cfg.AzureAccount, cfg.AzureKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AzureAccount)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &AzureReader{client: client}, nil
}

// ReadObject implements ObjectReader.
func (r *AzureReader) ReadObject(ctx context.Context, container, key string) ([]byte, error) {
	resp, err := r.client.DownloadStream(ctx, container, key, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", container, key, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	return io.ReadAll(resp.Body)
}
