package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hyperifyio/headtail/internal/source"
)

// NewProvider builds the configured backend wrapped in open retries. The
// returned closer releases backend connections and is never nil.
func NewProvider(ctx context.Context, cfg Config) (source.Provider, io.Closer, error) {
	var (
		p      source.Provider
		closer io.Closer = nopCloser{}
		err    error
	)
	switch cfg.Backend {
	case BackendFile, "":
		p = source.FileProvider{Root: cfg.FileRoot}
	case BackendHTTP:
		h := &source.HTTPProvider{
			BaseURL:       cfg.HTTP.BaseURL,
			UserAgent:     cfg.HTTP.UserAgent,
			MaxConcurrent: cfg.HTTP.MaxConcurrent,
		}
		if h.UserAgent == "" {
			h.UserAgent = "headtail/" + BuildVersion
		}
		if cfg.HTTP.BearerToken != "" {
			h.Header = http.Header{"Authorization": {"Bearer " + cfg.HTTP.BearerToken}}
		}
		p = h
	case BackendS3:
		p, err = source.NewS3Provider(ctx, cfg.S3)
	case BackendGCS:
		p, err = source.NewGCSProvider(ctx, cfg.GCS)
	case BackendAzure:
		p, err = source.NewAzureProvider(cfg.Azure)
	case BackendNATS:
		var np *source.NATSProvider
		np, err = source.NewNATSProvider(ctx, cfg.NATS)
		if err == nil {
			p, closer = np, np
		}
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("init %s backend: %w", cfg.Backend, err)
	}
	if cfg.RetryAttempts > 1 {
		p = &source.Retry{Provider: p, MaxAttempts: cfg.RetryAttempts}
	}
	return p, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
