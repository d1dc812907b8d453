// Package kv turns a flat key-value store into a full storage backend.
//
// A store only has to implement the small Adapter contract: get, set,
// delete, and a prefix scan. Backend layers the hierarchy semantics on
// top, so every key-value service (in-process maps, embedded databases,
// SQL tables, remote buckets) shares one implementation of directories,
// listing, copy, and rename.
package kv

import (
	"context"
)

// Capability declares which primitives a store supports. Backend derives
// the service-level capability from it: a store without Scan, for
// example, yields a backend that cannot list.
type Capability struct {
	// Get indicates support for point reads.
	Get bool
	// Set indicates support for point writes.
	Set bool
	// Delete indicates support for removing a key.
	Delete bool
	// Scan indicates support for listing keys under a prefix.
	Scan bool
}

// Info identifies an adapter instance.
type Info struct {
	// Scheme is the service scheme the adapter backs, e.g. "badger".
	Scheme string
	// Name identifies the store instance: a bucket, a database path,
	// or "" where the store has no such notion.
	Name string
	// Capability declares the supported primitives.
	Capability Capability
}

// Adapter is the contract a key-value store implements.
//
// Keys are absolute normalized paths such as "/root/a/b.txt"; keys
// ending in "/" are directory markers. Adapters treat keys as opaque
// ordered strings and never interpret them.
//
// Adapters holding OS resources additionally implement io.Closer, which
// Backend forwards.
type Adapter interface {
	// Info returns the adapter's identity and capability. It must be
	// cheap and never fail.
	Info() Info

	// Get returns the value stored under key. ok is false when the key
	// is absent; an absent key is not an error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Scan returns all keys beginning with prefix, including prefix
	// itself when present. Order is store-defined but stable.
	Scan(ctx context.Context, prefix string) ([]string, error)
}
