// Package billy provides the "billy" scheme: objects stored in a
// go-billy filesystem, either the in-memory memfs or a chrooted osfs.
//
// The accessor also wraps caller-supplied billy filesystems via New, so
// storage populated by go-git (worktrees, cloned repositories) can be
// served through an Operator unchanged.
package billy

import (
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/polystore/polystore"
)

// Scheme is the registry name of this service.
const Scheme = "billy"

func init() {
	polystore.Register(Scheme, func(options map[string]string) (polystore.Accessor, error) {
		var cfg Config
		if err := polystore.DecodeOptions(options, &cfg); err != nil {
			return nil, err
		}
		switch cfg.Backend {
		case "", "memory":
			return NewMemory(cfg.Root), nil
		case "local":
			return NewLocal(cfg.Root)
		default:
			return nil, polystore.Errorf(polystore.KindConfigInvalid,
				"unknown billy backend %q, want memory or local", cfg.Backend)
		}
	})
}

// Config holds the options of the billy service.
type Config struct {
	// Backend selects the filesystem: "memory" (default) or "local".
	Backend string `mapstructure:"backend"`

	// Root is the path prefix inside the filesystem for the memory
	// backend, or the OS directory to chroot into for the local backend.
	Root string `mapstructure:"root"`
}

type accessor struct {
	bfs  billy.Filesystem
	root string
	info polystore.AccessorInfo
}

// New wraps an existing billy filesystem, scoped under root. Use it to
// serve filesystems built elsewhere, such as a go-git worktree.
func New(bfs billy.Filesystem, root string) polystore.Accessor {
	return newAccessor(bfs, root, "")
}

// NewMemory constructs an accessor over a fresh in-memory filesystem.
func NewMemory(root string) polystore.Accessor {
	return newAccessor(memfs.New(), root, "memory")
}

// NewLocal constructs an accessor chrooted into the given OS directory.
// The directory is created if it does not exist.
func NewLocal(dir string) (polystore.Accessor, error) {
	if dir == "" {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "local billy backend requires a root directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "resolving root").WithCause(err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "creating root").WithCause(err)
	}
	a := newAccessor(osfs.New(abs), "/", "local")
	a.info.Root = filepath.ToSlash(abs)
	return a, nil
}

func newAccessor(bfs billy.Filesystem, root, name string) *accessor {
	r := polystore.NormalizeRoot(root)
	return &accessor{
		bfs:  bfs,
		root: r,
		info: polystore.AccessorInfo{
			Scheme: Scheme,
			Name:   name,
			Root:   r,
			Capability: polystore.Capability{
				Stat: true, Read: true, Write: true, CreateDir: true,
				Delete: true, Copy: true, Rename: true,
				List: true, ListWithRecursive: true,
			},
		},
	}
}

func (a *accessor) Info() polystore.AccessorInfo {
	return a.info
}

// abs resolves a normalized object path to the billy-side path. Billy
// has no trailing-slash convention, so the directory marker is dropped.
func (a *accessor) abs(path string) string {
	p := polystore.JoinRoot(a.root, path)
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func (a *accessor) Stat(ctx context.Context, path string) (*polystore.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "/" {
		return polystore.NewMetadata(polystore.EntryModeDir), nil
	}
	fi, err := a.bfs.Stat(a.abs(path))
	if err != nil {
		return nil, translate(err)
	}
	if fi.IsDir() {
		return polystore.NewMetadata(polystore.EntryModeDir).
			WithLastModified(fi.ModTime()), nil
	}
	if polystore.IsDirPath(path) {
		// A directory path naming a regular file resolves to nothing.
		return nil, polystore.NewError(polystore.KindNotFound, "no such directory")
	}
	return polystore.NewMetadata(polystore.EntryModeFile).
		WithContentLength(fi.Size()).
		WithLastModified(fi.ModTime()), nil
}

func (a *accessor) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := a.bfs.Open(a.abs(path))
	if err != nil {
		return nil, translate(err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

func (a *accessor) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := a.bfs.Create(a.abs(path))
	if err != nil {
		return translate(err)
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		return translate(werr)
	}
	return translate(cerr)
}

func (a *accessor) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "/" {
		return nil
	}
	err := a.bfs.Remove(a.abs(path))
	if err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return translate(err)
	}
	return nil
}

func (a *accessor) CreateDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translate(a.bfs.MkdirAll(a.abs(path), 0o755))
}

func (a *accessor) Copy(ctx context.Context, src, dst string) error {
	data, err := a.Read(ctx, src)
	if err != nil {
		return err
	}
	return a.Write(ctx, dst, data)
}

func (a *accessor) Rename(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := a.bfs.Stat(a.abs(src)); err != nil {
		return translate(err)
	}
	return translate(a.bfs.Rename(a.abs(src), a.abs(dst)))
}

func (a *accessor) List(ctx context.Context, path string, args polystore.ListArgs) (polystore.Pager, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &dirPager{accessor: a, queue: []string{path}, recursive: args.Recursive}, nil
}

// dirPager lists one directory per page, queueing child directories when
// recursive.
type dirPager struct {
	accessor  *accessor
	queue     []string
	recursive bool
}

func (p *dirPager) NextPage(ctx context.Context) ([]polystore.Entry, error) {
	for len(p.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := p.queue[0]
		p.queue = p.queue[1:]

		infos, err := p.accessor.bfs.ReadDir(p.accessor.abs(dir))
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				continue
			}
			return nil, translate(err)
		}

		prefix := dir
		if prefix == "/" {
			prefix = ""
		}
		entries := make([]polystore.Entry, 0, len(infos))
		for _, fi := range infos {
			if fi.IsDir() {
				child := prefix + fi.Name() + "/"
				entries = append(entries, polystore.NewEntry(child,
					polystore.NewMetadata(polystore.EntryModeDir).WithLastModified(fi.ModTime())))
				if p.recursive {
					p.queue = append(p.queue, child)
				}
				continue
			}
			entries = append(entries, polystore.NewEntry(prefix+fi.Name(),
				polystore.NewMetadata(polystore.EntryModeFile).
					WithContentLength(fi.Size()).
					WithLastModified(fi.ModTime())))
		}
		if len(entries) > 0 || len(p.queue) > 0 {
			return entries, nil
		}
	}
	return nil, io.EOF
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		return polystore.NewError(polystore.KindNotFound, "no such file or directory").WithCause(err)
	case errors.Is(err, iofs.ErrPermission):
		return polystore.NewError(polystore.KindPermissionDenied, "permission denied").WithCause(err)
	case errors.Is(err, iofs.ErrExist):
		return polystore.NewError(polystore.KindAlreadyExists, "file already exists").WithCause(err)
	case errors.Is(err, billy.ErrNotSupported):
		return polystore.NewError(polystore.KindUnsupported, "filesystem does not support the operation").WithCause(err)
	default:
		return polystore.NewError(polystore.KindInternal, "filesystem error").WithCause(err)
	}
}
