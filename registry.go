package polystore

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Factory constructs an Accessor from a raw option map. Factories decode
// the map with DecodeOptions, validate, and build the backend; they fail
// with ConfigInvalid errors, never panics, on bad options.
type Factory func(options map[string]string) (Accessor, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register ties a factory to a scheme. Services call Register from their
// init function, so importing a service package for side effects enables
// its scheme:
//
//	import _ "github.com/polystore/polystore/services/memory"
//
// Register panics if the factory is nil or the scheme is already taken;
// both indicate a programming error during initialization.
func Register(scheme string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("polystore: Register factory is nil")
	}
	if _, dup := registry[scheme]; dup {
		panic(fmt.Sprintf("polystore: Register called twice for scheme %q", scheme))
	}
	registry[scheme] = factory
}

// Schemes returns the registered scheme names in sorted order.
func Schemes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Sorted(maps.Keys(registry))
}

func lookupFactory(scheme string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[scheme]
	return f, ok
}
