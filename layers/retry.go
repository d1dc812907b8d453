package layers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/polystore/polystore"
)

// Retry returns a layer that retries operations failing with an error
// marked temporary, using exponential backoff. Permanent errors return
// immediately.
//
// Listings are retried only at the initial call. Pages are never
// retried: a listing that fails mid-stream cannot be resumed without
// re-reading earlier pages.
func Retry(opts ...RetryOption) polystore.Layer {
	cfg := retryConfig{
		maxRetries:      3,
		initialInterval: 100 * time.Millisecond,
		maxInterval:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(inner polystore.Accessor) polystore.Accessor {
		return &retryAccessor{inner: inner, cfg: cfg}
	}
}

type retryConfig struct {
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

// RetryOption adjusts the retry policy.
type RetryOption func(*retryConfig)

// WithMaxRetries sets how many times a failed operation is reattempted.
func WithMaxRetries(n uint64) RetryOption {
	return func(cfg *retryConfig) { cfg.maxRetries = n }
}

// WithInitialInterval sets the delay before the first reattempt.
func WithInitialInterval(d time.Duration) RetryOption {
	return func(cfg *retryConfig) { cfg.initialInterval = d }
}

// WithMaxInterval caps the delay between reattempts.
func WithMaxInterval(d time.Duration) RetryOption {
	return func(cfg *retryConfig) { cfg.maxInterval = d }
}

type retryAccessor struct {
	inner polystore.Accessor
	cfg   retryConfig
}

func (r *retryAccessor) Info() polystore.AccessorInfo {
	return r.inner.Info()
}

func (r *retryAccessor) Close() error {
	return closeInner(r.inner)
}

func (r *retryAccessor) do(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.initialInterval
	b.MaxInterval = r.cfg.maxInterval
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !polystore.IsTemporary(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.maxRetries), ctx))
}

func (r *retryAccessor) Stat(ctx context.Context, path string) (*polystore.Metadata, error) {
	var meta *polystore.Metadata
	err := r.do(ctx, func() error {
		var err error
		meta, err = r.inner.Stat(ctx, path)
		return err
	})
	return meta, err
}

func (r *retryAccessor) Read(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, func() error {
		var err error
		data, err = r.inner.Read(ctx, path)
		return err
	})
	return data, err
}

func (r *retryAccessor) Write(ctx context.Context, path string, data []byte) error {
	return r.do(ctx, func() error {
		return r.inner.Write(ctx, path, data)
	})
}

func (r *retryAccessor) Delete(ctx context.Context, path string) error {
	return r.do(ctx, func() error {
		return r.inner.Delete(ctx, path)
	})
}

func (r *retryAccessor) CreateDir(ctx context.Context, path string) error {
	return r.do(ctx, func() error {
		return r.inner.CreateDir(ctx, path)
	})
}

func (r *retryAccessor) Copy(ctx context.Context, src, dst string) error {
	return r.do(ctx, func() error {
		return r.inner.Copy(ctx, src, dst)
	})
}

func (r *retryAccessor) Rename(ctx context.Context, src, dst string) error {
	return r.do(ctx, func() error {
		return r.inner.Rename(ctx, src, dst)
	})
}

func (r *retryAccessor) List(ctx context.Context, path string, args polystore.ListArgs) (polystore.Pager, error) {
	var pager polystore.Pager
	err := r.do(ctx, func() error {
		var err error
		pager, err = r.inner.List(ctx, path, args)
		return err
	})
	return pager, err
}
