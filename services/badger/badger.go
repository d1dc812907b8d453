// Package badger provides the "badger" scheme: objects stored in an
// embedded BadgerDB key-value database through the kv bridge.
//
// The database lives in the path directory, or fully in memory with the
// in_memory option. One database may back many operators under distinct
// roots.
package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/kv"
)

// Scheme is the registry name of this service.
const Scheme = "badger"

func init() {
	polystore.Register(Scheme, func(options map[string]string) (polystore.Accessor, error) {
		var cfg Config
		if err := polystore.DecodeOptions(options, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// Config holds the options of the badger service.
type Config struct {
	// Path is the directory holding the database. Required unless
	// InMemory is set.
	Path string `mapstructure:"path"`

	// InMemory keeps the database off disk entirely.
	InMemory bool `mapstructure:"in_memory"`

	// Root is the path prefix all operations are scoped under.
	Root string `mapstructure:"root"`
}

// New opens the database and constructs the accessor.
func New(cfg Config) (polystore.Accessor, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "badger service requires a path or in_memory")
	}
	opt := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.InMemory {
		opt = opt.WithInMemory(true)
	}
	db, err := badger.Open(opt)
	if err != nil {
		return nil, polystore.NewError(polystore.KindConfigInvalid, "opening badger database").WithCause(err)
	}
	return kv.NewBackend(&store{db: db, name: cfg.Path}, cfg.Root), nil
}

type store struct {
	db   *badger.DB
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
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr(err)
	}
	return value, true, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return storeErr(s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	}))
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return storeErr(s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}))
}

func (s *store) Scan(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return keys, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return polystore.NewError(polystore.KindInternal, "badger operation failed").WithCause(err)
}
