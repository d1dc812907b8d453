// Package handle implements the arena behind the flat ffi surface.
//
// Stateful objects crossing a C-shaped boundary cannot travel as Go
// pointers, so they are boxed into a Registry and addressed by opaque
// uint64 handles. The caller owns each slot: Put allocates it, Release
// frees it exactly once. A second Release, or any use after it, is a
// caller bug and is reported, never tolerated.
package handle

import (
	"errors"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// Handle addresses one boxed value. The zero Handle is never issued, so
// it can double as "no handle" in flat return conventions.
type Handle uint64

var (
	// ErrInvalid reports a handle this registry never issued.
	ErrInvalid = errors.New("handle: not issued by this registry")

	// ErrReleased reports a handle used after its release.
	ErrReleased = errors.New("handle: already released")
)

// Registry is a concurrency-safe arena of boxed values.
//
// Handles are allocated from a monotonic counter and never reused.
// That watermark is what lets a stale handle be told apart from a
// fabricated one: an absent handle at or below the watermark was
// released, one above it was never issued.
type Registry[T any] struct {
	last  atomic.Uint64
	slots *xsync.Map[Handle, T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{slots: xsync.NewMap[Handle, T]()}
}

// Put boxes value and returns its handle. The returned handle is never
// zero.
func (r *Registry[T]) Put(value T) Handle {
	h := Handle(r.last.Add(1))
	r.slots.Store(h, value)
	return h
}

// Get resolves a handle without transferring ownership.
func (r *Registry[T]) Get(h Handle) (T, error) {
	value, ok := r.slots.Load(h)
	if !ok {
		var zero T
		return zero, r.missing(h)
	}
	return value, nil
}

// Release removes the handle and returns the boxed value, so the caller
// can run its teardown. Releasing twice fails with ErrReleased.
func (r *Registry[T]) Release(h Handle) (T, error) {
	value, ok := r.slots.LoadAndDelete(h)
	if !ok {
		var zero T
		return zero, r.missing(h)
	}
	return value, nil
}

// Len returns the number of live handles.
func (r *Registry[T]) Len() int {
	return r.slots.Size()
}

func (r *Registry[T]) missing(h Handle) error {
	if h != 0 && uint64(h) <= r.last.Load() {
		return ErrReleased
	}
	return ErrInvalid
}
