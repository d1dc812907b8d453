// Package memory provides the in-process storage service.
//
// Objects live in a map inside the current process, so the service needs
// no configuration beyond an optional root and every operation is
// supported. It is the reference backend: new callers, examples, and
// conformance tests start here.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/kv"
)

// Scheme is the registry scheme of this service.
const Scheme = "memory"

func init() {
	polystore.Register(Scheme, factory)
}

// Config holds the memory service options.
type Config struct {
	// Root is the path prefix all operations are scoped under.
	Root string `mapstructure:"root"`
}

func factory(options map[string]string) (polystore.Accessor, error) {
	var cfg Config
	if err := polystore.DecodeOptions(options, &cfg); err != nil {
		return nil, err
	}
	return New(cfg), nil
}

// New constructs a memory accessor. Each call owns a fresh, empty store.
func New(cfg Config) polystore.Accessor {
	return kv.NewBackend(&store{data: map[string][]byte{}}, cfg.Root)
}

// store is the Adapter: a mutex-guarded map. Scan snapshots and sorts
// the matching keys under the read lock, so listings are stable.
type store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (s *store) Info() kv.Info {
	return kv.Info{
		Scheme:     Scheme,
		Capability: kv.Capability{Get: true, Set: true, Delete: true, Scan: true},
	}
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(value), true, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = slices.Clone(value)
	return nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *store) Scan(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range maps.Keys(s.data) {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}
