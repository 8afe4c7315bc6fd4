package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureConfig holds settings for the Azure Blob Storage backend. Either a
// connection string or a service URL (typically carrying a SAS token) is
// required.
type AzureConfig struct {
	ConnectionString string `yaml:"connectionString" json:"connectionString" toml:"connectionString"`
	ServiceURL       string `yaml:"serviceURL" json:"serviceURL" toml:"serviceURL"`
	Container        string `yaml:"container" json:"container" toml:"container"`
}

type blobOpener interface {
	open(ctx context.Context, container, blob string) (io.ReadCloser, error)
}

type azureClient struct {
	c *azblob.Client
}

func (a azureClient) open(ctx context.Context, container, blob string) (io.ReadCloser, error) {
	resp, err := a.c.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// AzureProvider streams blobs from one container.
type AzureProvider struct {
	blobs     blobOpener
	container string
}

// NewAzureProvider builds a blob client from cfg.
func NewAzureProvider(cfg AzureConfig) (*AzureProvider, error) {
	if strings.TrimSpace(cfg.Container) == "" {
		return nil, errors.New("azblob source: container is required")
	}
	var (
		client *azblob.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.ServiceURL != "":
		client, err = azblob.NewClientWithNoCredential(cfg.ServiceURL, nil)
	default:
		return nil, errors.New("azblob source: connection string or service URL is required")
	}
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return &AzureProvider{blobs: azureClient{c: client}, container: cfg.Container}, nil
}

// Open downloads the blob as a stream.
func (p *AzureProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := p.blobs.open(ctx, p.container, key)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
			return nil, notFound(key, err)
		}
		return nil, fmt.Errorf("azblob get %s/%s: %w", p.container, key, err)
	}
	return rc, nil
}
