package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSConfig holds settings for the JetStream object store backend.
type NATSConfig struct {
	URL       string `yaml:"url" json:"url" toml:"url"`
	Bucket    string `yaml:"bucket" json:"bucket" toml:"bucket"`
	CredsFile string `yaml:"credsFile" json:"credsFile" toml:"credsFile"`
}

type objectGetter interface {
	Get(ctx context.Context, name string, opts ...jetstream.GetObjectOpt) (jetstream.ObjectResult, error)
}

// NATSProvider streams objects from a JetStream object store bucket.
type NATSProvider struct {
	conn  *nats.Conn
	store objectGetter
}

// NewNATSProvider connects to the server and binds the bucket.
func NewNATSProvider(ctx context.Context, cfg NATSConfig) (*NATSProvider, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("nats source: bucket is required")
	}
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{nats.Name("headtail")}
	if cfg.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFile))
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	store, err := js.ObjectStore(ctx, cfg.Bucket)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind object store %q: %w", cfg.Bucket, err)
	}
	return &NATSProvider{conn: conn, store: store}, nil
}

// Open returns a reader over the object's chunks.
func (p *NATSProvider) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	res, err := p.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, notFound(key, nil)
		}
		return nil, fmt.Errorf("nats get %s: %w", key, err)
	}
	return res, nil
}

// Close drops the NATS connection.
func (p *NATSProvider) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
