package source

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Retry wraps a Provider and retries Open on failure with exponential
// backoff. Only opening is retried; once a stream is returned, read errors
// belong to the caller. ErrNotFound and context errors are never retried.
type Retry struct {
	Provider Provider
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// InitialInterval is the first backoff delay. Zero means 200ms.
	InitialInterval time.Duration
}

// Open opens key through the wrapped provider.
func (r *Retry) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	attempts := r.MaxAttempts
	if attempts <= 1 {
		return r.Provider.Open(ctx, key)
	}
	eb := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		eb.InitialInterval = r.InitialInterval
	} else {
		eb.InitialInterval = 200 * time.Millisecond
	}
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	var rc io.ReadCloser
	op := func() error {
		var err error
		rc, err = r.Provider.Open(ctx, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Debug().Err(err).Str("key", key).Dur("wait", wait).Msg("open failed; retrying")
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return rc, nil
}
