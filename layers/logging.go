package layers

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/polystore/polystore"
)

// Logging returns a layer that emits one structured log event per
// operation, carrying the operation, path, duration, and outcome.
//
// Successes log at debug. Failures log at warn, except NotFound, which
// is part of normal control flow and stays at debug.
func Logging(logger zerolog.Logger) polystore.Layer {
	return func(inner polystore.Accessor) polystore.Accessor {
		return &loggingAccessor{inner: inner, logger: logger}
	}
}

type loggingAccessor struct {
	inner  polystore.Accessor
	logger zerolog.Logger
}

func (l *loggingAccessor) Info() polystore.AccessorInfo {
	return l.inner.Info()
}

func (l *loggingAccessor) Close() error {
	return closeInner(l.inner)
}

func (l *loggingAccessor) Stat(ctx context.Context, path string) (*polystore.Metadata, error) {
	start := time.Now()
	meta, err := l.inner.Stat(ctx, path)
	l.event("stat", start, err).Str("path", path).Msg("storage operation")
	return meta, err
}

func (l *loggingAccessor) Read(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	data, err := l.inner.Read(ctx, path)
	evt := l.event("read", start, err).Str("path", path)
	if err == nil {
		evt = evt.Int("bytes", len(data))
	}
	evt.Msg("storage operation")
	return data, err
}

func (l *loggingAccessor) Write(ctx context.Context, path string, data []byte) error {
	start := time.Now()
	err := l.inner.Write(ctx, path, data)
	l.event("write", start, err).Str("path", path).Int("bytes", len(data)).Msg("storage operation")
	return err
}

func (l *loggingAccessor) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := l.inner.Delete(ctx, path)
	l.event("delete", start, err).Str("path", path).Msg("storage operation")
	return err
}

func (l *loggingAccessor) CreateDir(ctx context.Context, path string) error {
	start := time.Now()
	err := l.inner.CreateDir(ctx, path)
	l.event("create_dir", start, err).Str("path", path).Msg("storage operation")
	return err
}

func (l *loggingAccessor) Copy(ctx context.Context, src, dst string) error {
	start := time.Now()
	err := l.inner.Copy(ctx, src, dst)
	l.event("copy", start, err).Str("from", src).Str("to", dst).Msg("storage operation")
	return err
}

func (l *loggingAccessor) Rename(ctx context.Context, src, dst string) error {
	start := time.Now()
	err := l.inner.Rename(ctx, src, dst)
	l.event("rename", start, err).Str("from", src).Str("to", dst).Msg("storage operation")
	return err
}

func (l *loggingAccessor) List(ctx context.Context, path string, args polystore.ListArgs) (polystore.Pager, error) {
	start := time.Now()
	pager, err := l.inner.List(ctx, path, args)
	l.event("list", start, err).Str("path", path).Bool("recursive", args.Recursive).Msg("storage operation")
	if err != nil {
		return nil, err
	}
	return &loggingPager{inner: pager, logger: l.logger, path: path}, nil
}

func (l *loggingAccessor) event(op string, start time.Time, err error) *zerolog.Event {
	evt := l.logger.Debug()
	if err != nil && polystore.KindOf(err) != polystore.KindNotFound {
		evt = l.logger.Warn()
	}
	evt = evt.Str("op", op).Dur("dur", time.Since(start))
	if err != nil {
		evt = evt.Str("kind", polystore.KindOf(err).String()).Err(err)
	}
	return evt
}

// loggingPager surfaces failures that happen after the listing started;
// the end of the listing is not an event worth logging.
type loggingPager struct {
	inner  polystore.Pager
	logger zerolog.Logger
	path   string
}

func (p *loggingPager) NextPage(ctx context.Context) ([]polystore.Entry, error) {
	entries, err := p.inner.NextPage(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		p.logger.Warn().Str("op", "list").Str("path", p.path).
			Str("kind", polystore.KindOf(err).String()).Err(err).Msg("page fetch failed")
	}
	return entries, err
}

func (p *loggingPager) Close() error {
	return closePager(p.inner)
}
