// Package fs provides the "fs" scheme: objects stored as regular files
// under a root directory of the local filesystem.
//
// The root option is required and is created on construction if absent.
// Paths map one to one onto the directory tree below it, so the data
// remains readable by ordinary tools.
package fs

import (
	"context"
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/polystore/polystore"
)

// Scheme is the registry name of this service.
const Scheme = "fs"

func init() {
	polystore.Register(Scheme, func(options map[string]string) (polystore.Accessor, error) {
		var cfg Config
		if err := polystore.DecodeOptions(options, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// Config holds the options of the fs service.
type Config struct {
	// Root is the local directory all paths are resolved under.
	Root string `mapstructure:"root"`
}

type accessor struct {
	root string
	info polystore.AccessorInfo
}

// New constructs a local filesystem accessor rooted at cfg.Root. The
// root directory is created if it does not exist.
func New(cfg Config) (polystore.Accessor, error) {
	if cfg.Root == "" {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "fs service requires a root directory")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "resolving root").WithCause(err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "creating root").WithCause(translate(err))
	}
	return &accessor{
		root: root,
		info: polystore.AccessorInfo{
			Scheme: Scheme,
			Root:   filepath.ToSlash(root),
			Capability: polystore.Capability{
				Stat: true, Read: true, Write: true, CreateDir: true,
				Delete: true, Copy: true, Rename: true,
				List: true, ListWithRecursive: true,
			},
		},
	}, nil
}

func (a *accessor) Info() polystore.AccessorInfo {
	return a.info
}

// abs resolves a normalized object path to the OS path under the root.
func (a *accessor) abs(path string) string {
	if path == "/" {
		return a.root
	}
	return filepath.Join(a.root, filepath.FromSlash(path))
}

func (a *accessor) Stat(ctx context.Context, path string) (*polystore.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "/" {
		return polystore.NewMetadata(polystore.EntryModeDir), nil
	}
	fi, err := os.Stat(a.abs(path))
	if err != nil {
		return nil, translate(err)
	}
	if fi.IsDir() {
		return polystore.NewMetadata(polystore.EntryModeDir).
			WithLastModified(fi.ModTime()), nil
	}
	return polystore.NewMetadata(polystore.EntryModeFile).
		WithContentLength(fi.Size()).
		WithLastModified(fi.ModTime()), nil
}

func (a *accessor) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.abs(path))
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

func (a *accessor) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := a.abs(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return translate(err)
	}
	// Write to a sibling temp file and rename it in, so readers never
	// observe a half-written object.
	tmp, err := os.CreateTemp(filepath.Dir(target), ".polystore-*")
	if err != nil {
		return translate(err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		if werr != nil {
			return translate(werr)
		}
		return translate(cerr)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return translate(err)
	}
	return nil
}

func (a *accessor) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "/" {
		return nil
	}
	err := os.Remove(a.abs(path))
	if err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return translate(err)
	}
	return nil
}

func (a *accessor) CreateDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return translate(os.MkdirAll(a.abs(path), 0o755))
}

func (a *accessor) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.Open(a.abs(src))
	if err != nil {
		return translate(err)
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return translate(err)
	}
	if fi.IsDir() {
		return polystore.NewError(polystore.KindIsADirectory, "copy source is a directory")
	}
	target := a.abs(dst)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return translate(err)
	}
	out, err := os.Create(target)
	if err != nil {
		return translate(err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(target)
		return translate(err)
	}
	return translate(out.Close())
}

func (a *accessor) Rename(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := a.abs(src)
	if fi, err := os.Stat(from); err != nil {
		return translate(err)
	} else if fi.IsDir() {
		return polystore.NewError(polystore.KindIsADirectory, "rename source is a directory")
	}
	target := a.abs(dst)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return translate(err)
	}
	return translate(os.Rename(from, target))
}

func (a *accessor) List(ctx context.Context, path string, args polystore.ListArgs) (polystore.Pager, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &dirPager{accessor: a, queue: []string{path}, recursive: args.Recursive}, nil
}

// dirPager lists one directory per page. In recursive mode child
// directories are queued behind the current page, giving a breadth-first
// walk in bounded memory.
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

		dirents, err := os.ReadDir(p.accessor.abs(dir))
		if err != nil {
			// A vanished directory lists as empty, matching the
			// listing contract for absent paths.
			if errors.Is(err, iofs.ErrNotExist) {
				continue
			}
			return nil, translate(err)
		}

		prefix := dir
		if prefix == "/" {
			prefix = ""
		}
		entries := make([]polystore.Entry, 0, len(dirents))
		for _, de := range dirents {
			if de.IsDir() {
				child := prefix + de.Name() + "/"
				entries = append(entries, polystore.NewEntry(child,
					polystore.NewMetadata(polystore.EntryModeDir)))
				if p.recursive {
					p.queue = append(p.queue, child)
				}
				continue
			}
			meta := polystore.NewMetadata(polystore.EntryModeFile)
			if fi, err := de.Info(); err == nil {
				meta = meta.WithContentLength(fi.Size()).WithLastModified(fi.ModTime())
			}
			entries = append(entries, polystore.NewEntry(prefix+de.Name(), meta))
		}
		if len(entries) > 0 || len(p.queue) > 0 {
			return entries, nil
		}
	}
	return nil, io.EOF
}

// translate maps an os error onto the portable error kinds.
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
	case errors.Is(err, syscall.EISDIR):
		return polystore.NewError(polystore.KindIsADirectory, "target is a directory").WithCause(err)
	case errors.Is(err, syscall.ENOTDIR):
		return polystore.NewError(polystore.KindNotADirectory, "target is not a directory").WithCause(err)
	default:
		return polystore.NewError(polystore.KindInternal, "filesystem error").WithCause(err)
	}
}
