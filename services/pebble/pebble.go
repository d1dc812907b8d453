// Package pebble provides the "pebble" scheme: objects stored in an
// embedded Pebble LSM database through the kv bridge.
package pebble

import (
	"context"
	"errors"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/kv"
)

// Scheme is the registry name of this service.
const Scheme = "pebble"

func init() {
	polystore.Register(Scheme, func(options map[string]string) (polystore.Accessor, error) {
		var cfg Config
		if err := polystore.DecodeOptions(options, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// Config holds the options of the pebble service.
type Config struct {
	// Path is the directory holding the database. Required unless
	// InMemory is set.
	Path string `mapstructure:"path"`

	// InMemory backs the database with an in-memory virtual filesystem.
	InMemory bool `mapstructure:"in_memory"`

	// Root is the path prefix all operations are scoped under.
	Root string `mapstructure:"root"`
}

// New opens the database and constructs the accessor.
func New(cfg Config) (polystore.Accessor, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "pebble service requires a path or in_memory")
	}
	opts := &pebble.Options{}
	if cfg.InMemory {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(cfg.Path, opts)
	if err != nil {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "opening pebble database").WithCause(err)
	}
	return kv.NewBackend(&store{db: db, name: cfg.Path}, cfg.Root), nil
}

type store struct {
	db   *pebble.DB
	name string
}

func (s *store) Info() kv.Info {
	return kv.Info{
		Scheme:     Scheme,
		Name:       s.name,
		Capability: kv.Capability{Get: true, Set: true, Delete: true, Scan: true},
	}
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	val, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr(err)
	}
	// The slice is only valid until the closer is released.
	value := make([]byte, len(val))
	copy(value, val)
	if err := closer.Close(); err != nil {
		return nil, false, storeErr(err)
	}
	return value, true, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return storeErr(s.db.Set([]byte(key), value, pebble.Sync))
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return storeErr(s.db.Delete([]byte(key), pebble.Sync))
}

func (s *store) Scan(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lower := []byte(prefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixEnd(lower),
	})
	if err != nil {
		return nil, storeErr(err)
	}
	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Close(); err != nil {
		return nil, storeErr(err)
	}
	return keys, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

// prefixEnd returns the exclusive upper bound for a prefix scan: the
// prefix with its last byte incremented, or nil when every byte
// overflows.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return polystore.NewError(polystore.KindInternal, "pebble operation failed").WithCause(err)
}
