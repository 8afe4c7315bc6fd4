// Package source opens forward-only streams for named objects held in a
// store: a local directory, an HTTP endpoint, S3, Google Cloud Storage, Azure
// Blob Storage or a NATS JetStream object store.
//
// Every backend maps its own "object does not exist" signal to ErrNotFound so
// callers can tell a missing source from a failing one with errors.Is.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound reports that the key does not resolve to an object.
var ErrNotFound = errors.New("source not found")

// Provider opens a stream for an object key. The returned stream is read
// sequentially once and must be closed by the caller.
type Provider interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, key string) (io.ReadCloser, error)

// Open calls f.
func (f ProviderFunc) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return f(ctx, key)
}

func notFound(key string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("%w: %s: %v", ErrNotFound, key, cause)
}

// ContextReader returns a reader that fails with ctx.Err() once ctx is done.
// Backends whose streams ignore cancellation are wrapped with it.
func ContextReader(ctx context.Context, rc io.ReadCloser) io.ReadCloser {
	return &ctxReader{ctx: ctx, rc: rc}
}

type ctxReader struct {
	ctx context.Context
	rc  io.ReadCloser
}

func (r *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
	}
	return r.rc.Read(p)
}

func (r *ctxReader) Close() error { return r.rc.Close() }
