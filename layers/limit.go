package layers

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/polystore/polystore"
)

// ConcurrentLimit returns a layer that bounds the number of in-flight
// backend calls. Callers beyond the limit block until a slot frees, or
// until their context is done.
//
// The limit belongs to the returned layer: applying one layer value to
// several operators makes them share it.
//
// For listings, a slot is held per page fetch, not for the pager's
// lifetime, so an idle lister does not occupy a slot.
func ConcurrentLimit(n int64) polystore.Layer {
	sem := semaphore.NewWeighted(n)
	return func(inner polystore.Accessor) polystore.Accessor {
		return &limitAccessor{inner: inner, sem: sem}
	}
}

type limitAccessor struct {
	inner polystore.Accessor
	sem   *semaphore.Weighted
}

func (l *limitAccessor) Info() polystore.AccessorInfo {
	return l.inner.Info()
}

func (l *limitAccessor) Close() error {
	return closeInner(l.inner)
}

func (l *limitAccessor) Stat(ctx context.Context, path string) (*polystore.Metadata, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)
	return l.inner.Stat(ctx, path)
}

func (l *limitAccessor) Read(ctx context.Context, path string) ([]byte, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)
	return l.inner.Read(ctx, path)
}

func (l *limitAccessor) Write(ctx context.Context, path string, data []byte) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return l.inner.Write(ctx, path, data)
}

func (l *limitAccessor) Delete(ctx context.Context, path string) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return l.inner.Delete(ctx, path)
}

func (l *limitAccessor) CreateDir(ctx context.Context, path string) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return l.inner.CreateDir(ctx, path)
}

func (l *limitAccessor) Copy(ctx context.Context, src, dst string) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return l.inner.Copy(ctx, src, dst)
}

func (l *limitAccessor) Rename(ctx context.Context, src, dst string) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return l.inner.Rename(ctx, src, dst)
}

func (l *limitAccessor) List(ctx context.Context, path string, args polystore.ListArgs) (polystore.Pager, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)
	pager, err := l.inner.List(ctx, path, args)
	if err != nil {
		return nil, err
	}
	return &limitPager{inner: pager, sem: l.sem}, nil
}

type limitPager struct {
	inner polystore.Pager
	sem   *semaphore.Weighted
}

func (p *limitPager) NextPage(ctx context.Context) ([]polystore.Entry, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)
	return p.inner.NextPage(ctx)
}

func (p *limitPager) Close() error {
	return closePager(p.inner)
}
