package kv

import (
	"context"
	"io"
	"strings"

	"github.com/polystore/polystore"
)

// Backend adapts an Adapter into a polystore.Accessor.
//
// Layout: every object lives under its root-joined absolute path; a key
// with a trailing slash and an empty value is a directory marker. Values
// hold the raw object bytes, so the stored data stays readable by tools
// that know nothing of this module.
//
// Stat of the root always reports a directory, marker or not. Stat of
// any other path reports what is stored: files carry their byte length,
// markers report an empty directory. Copy and rename are derived from
// get and set, and both overwrite their destination.
type Backend struct {
	adapter Adapter
	root    string
	info    polystore.AccessorInfo
}

// NewBackend wraps adapter into an accessor scoped under root.
func NewBackend(adapter Adapter, root string) *Backend {
	root = polystore.NormalizeRoot(root)
	ai := adapter.Info()
	c := ai.Capability
	return &Backend{
		adapter: adapter,
		root:    root,
		info: polystore.AccessorInfo{
			Scheme: ai.Scheme,
			Name:   ai.Name,
			Root:   root,
			Capability: polystore.Capability{
				Stat:              c.Get,
				Read:              c.Get,
				Write:             c.Set,
				CreateDir:         c.Set,
				Delete:            c.Delete,
				Copy:              c.Get && c.Set,
				Rename:            c.Get && c.Set && c.Delete,
				List:              c.Scan,
				ListWithRecursive: c.Scan,
			},
		},
	}
}

// Info returns the accessor's identity and capability.
func (b *Backend) Info() polystore.AccessorInfo {
	return b.info
}

// Stat returns the metadata of the object at path.
func (b *Backend) Stat(ctx context.Context, path string) (*polystore.Metadata, error) {
	if path == "/" {
		return polystore.NewMetadata(polystore.EntryModeDir), nil
	}
	key := polystore.JoinRoot(b.root, path)
	value, ok, err := b.adapter.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, polystore.NewError(polystore.KindNotFound, "store has no such key")
	}
	if polystore.IsDirPath(path) {
		return polystore.NewMetadata(polystore.EntryModeDir), nil
	}
	return polystore.NewMetadata(polystore.EntryModeFile).
		WithContentLength(int64(len(value))), nil
}

// Read returns the contents of the file at path.
func (b *Backend) Read(ctx context.Context, path string) ([]byte, error) {
	key := polystore.JoinRoot(b.root, path)
	value, ok, err := b.adapter.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, polystore.NewError(polystore.KindNotFound, "store has no such key")
	}
	return value, nil
}

// Write creates or replaces the file at path.
func (b *Backend) Write(ctx context.Context, path string, data []byte) error {
	return b.adapter.Set(ctx, polystore.JoinRoot(b.root, path), data)
}

// Delete removes the object at path. Absent paths are a no-op.
func (b *Backend) Delete(ctx context.Context, path string) error {
	if path == "/" {
		return nil
	}
	return b.adapter.Delete(ctx, polystore.JoinRoot(b.root, path))
}

// CreateDir stores the directory marker for path.
func (b *Backend) CreateDir(ctx context.Context, path string) error {
	if path == "/" {
		return nil
	}
	return b.adapter.Set(ctx, polystore.JoinRoot(b.root, path), nil)
}

// Copy duplicates the file at src to dst.
func (b *Backend) Copy(ctx context.Context, src, dst string) error {
	value, ok, err := b.adapter.Get(ctx, polystore.JoinRoot(b.root, src))
	if err != nil {
		return err
	}
	if !ok {
		return polystore.NewError(polystore.KindNotFound, "store has no such key").WithPath(src)
	}
	return b.adapter.Set(ctx, polystore.JoinRoot(b.root, dst), value)
}

// Rename moves the file at src to dst.
func (b *Backend) Rename(ctx context.Context, src, dst string) error {
	if err := b.Copy(ctx, src, dst); err != nil {
		return err
	}
	return b.adapter.Delete(ctx, polystore.JoinRoot(b.root, src))
}

// List scans the prefix of path and returns the listing as one page.
//
// Without Recursive, descendants deeper than one level collapse into
// their first-level directory, each reported once. The listed directory
// itself is never part of the listing.
func (b *Backend) List(ctx context.Context, path string, args polystore.ListArgs) (polystore.Pager, error) {
	prefix := polystore.JoinRoot(b.root, path)
	keys, err := b.adapter.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var entries []polystore.Entry
	seen := make(map[string]struct{})
	for _, key := range keys {
		if key == prefix {
			continue
		}
		rel := polystore.StripRoot(b.root, key)
		if args.Recursive {
			entries = append(entries, entryFor(rel))
			continue
		}
		sub := rel
		if path != "/" {
			sub = strings.TrimPrefix(rel, path)
		}
		if i := strings.IndexByte(sub, '/'); i >= 0 && i < len(sub)-1 {
			// Deeper than one level: collapse into the first-level dir.
			dir := rel[:len(rel)-len(sub)+i+1]
			if _, dup := seen[dir]; dup {
				continue
			}
			seen[dir] = struct{}{}
			entries = append(entries, polystore.NewEntry(dir, polystore.NewMetadata(polystore.EntryModeDir)))
			continue
		}
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}
		entries = append(entries, entryFor(rel))
	}
	return &singlePager{entries: entries}, nil
}

// Close forwards to the adapter when it holds closable resources.
func (b *Backend) Close() error {
	if c, ok := b.adapter.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func entryFor(rel string) polystore.Entry {
	mode := polystore.EntryModeFile
	if polystore.IsDirPath(rel) {
		mode = polystore.EntryModeDir
	}
	return polystore.NewEntry(rel, polystore.NewMetadata(mode))
}

type singlePager struct {
	entries []polystore.Entry
	served  bool
}

func (p *singlePager) NextPage(ctx context.Context) ([]polystore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.served {
		return nil, io.EOF
	}
	p.served = true
	return p.entries, nil
}
