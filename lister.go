package polystore

import (
	"context"
	"io"
	"sync"
)

// Lister walks one listing entry by entry.
//
// A Lister buffers the current page and asks its Pager for the next page
// only when the buffer drains, so arbitrarily large directories stream
// in bounded memory. The contract of Next:
//
//   - (entry, nil): one more entry. Order within one Lister is stable;
//     order across listings is backend-defined.
//   - (nil, nil): the listing is exhausted. The end marker is sticky:
//     every further Next returns it again.
//   - (nil, err): a page fetch failed. The failure is sticky too; the
//     only useful call afterwards is Close.
//
// A Lister is single-consumer: Next must not be called concurrently.
// Close may be called from any goroutine and is idempotent.
type Lister struct {
	mu    sync.Mutex
	op    *Operator
	pager Pager
	path  string

	buf    []Entry
	done   bool
	failed error
	closed bool
}

func newLister(op *Operator, pager Pager, path string) *Lister {
	return &Lister{op: op, pager: pager, path: path}
}

// Next returns the next entry of the listing, or (nil, nil) once the
// listing is exhausted.
func (l *Lister) Next(ctx context.Context) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, NewError(KindInternal, "lister is closed").
			WithOperation("list").WithPath(l.path)
	}
	if l.op.isClosed() {
		return nil, NewError(KindInternal, "operator is closed").
			WithOperation("list").WithPath(l.path)
	}
	if l.failed != nil {
		return nil, l.failed
	}

	for len(l.buf) == 0 && !l.done {
		page, err := l.pager.NextPage(ctx)
		if err == io.EOF {
			l.done = true
			break
		}
		if err != nil {
			l.failed = decorate(err, "list", l.path)
			return nil, l.failed
		}
		l.buf = page
	}

	if len(l.buf) == 0 {
		return nil, nil
	}
	entry := l.buf[0]
	l.buf = l.buf[1:]
	return &entry, nil
}

// All drains the rest of the listing into a slice.
func (l *Lister) All(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	for {
		entry, err := l.Next(ctx)
		if err != nil {
			return entries, err
		}
		if entry == nil {
			return entries, nil
		}
		entries = append(entries, *entry)
	}
}

// Close releases the listing. Closing twice is a no-op, and closing an
// exhausted or failed Lister is valid.
func (l *Lister) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.buf = nil
	if c, ok := l.pager.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
