package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// GCSConfig holds settings for the Google Cloud Storage backend.
type GCSConfig struct {
	Bucket string `yaml:"bucket" json:"bucket" toml:"bucket"`
	// CredentialsFile is a service account JSON key. Empty uses application
	// default credentials.
	CredentialsFile string `yaml:"credentialsFile" json:"credentialsFile" toml:"credentialsFile"`
	// Endpoint overrides the API endpoint, e.g. for an emulator.
	Endpoint string `yaml:"endpoint" json:"endpoint" toml:"endpoint"`
	// Anonymous skips authentication for public buckets and emulators.
	Anonymous bool `yaml:"anonymous" json:"anonymous" toml:"anonymous"`
}

type objectDownloader interface {
	download(ctx context.Context, bucket, object string) (*http.Response, error)
}

type gcsObjects struct {
	svc *storage.Service
}

func (g gcsObjects) download(ctx context.Context, bucket, object string) (*http.Response, error) {
	return g.svc.Objects.Get(bucket, object).Context(ctx).Download()
}

// GCSProvider streams object media from one bucket through the JSON API.
type GCSProvider struct {
	objects objectDownloader
	bucket  string
}

// NewGCSProvider builds a storage service from cfg.
func NewGCSProvider(ctx context.Context, cfg GCSConfig) (*GCSProvider, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs source: bucket is required")
	}
	opts := []option.ClientOption{option.WithScopes(storage.DevstorageReadOnlyScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}
	return &GCSProvider{objects: gcsObjects{svc: svc}, bucket: cfg.Bucket}, nil
}

// Open downloads the object media as a stream.
func (p *GCSProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := p.objects.download(ctx, p.bucket, key)
	if err != nil {
		if isGCSNotFound(err) {
			return nil, notFound(key, err)
		}
		return nil, fmt.Errorf("gcs get %s/%s: %w", p.bucket, key, err)
	}
	return resp.Body, nil
}

func isGCSNotFound(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return false
}
