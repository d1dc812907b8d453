// Package ffi exposes operators as a flat, blocking, handle-based
// surface shaped for a C shared-library export.
//
// Stateful objects (operators, listers) stay boxed behind opaque
// handles; metadata and entries cross as value copies; failures cross
// as a Status of numeric code plus message. Byte payloads are copied in
// both directions, so nothing behind the boundary is ever aliased by a
// caller. The cgo glue that would turn this into an actual shared
// library is intentionally absent; the surface is written so that glue
// is mechanical.
package ffi

import (
	"maps"
	"slices"

	"github.com/polystore/polystore"
	"github.com/polystore/polystore/handle"
)

// Handle identifies a boxed object. Callers of this surface never need
// the registry package behind it.
type Handle = handle.Handle

// Status is the outcome of every call: code 0 is success, any other
// code is the numeric error kind. The code never doubles as a payload.
type Status struct {
	Code    int32
	Message string
}

// OK reports whether the call succeeded.
func (s Status) OK() bool {
	return s.Code == 0
}

// Metadata is the flat value copy of an object's metadata.
type Metadata struct {
	Mode          uint32
	ContentLength int64
	LastModified  int64 // Unix milliseconds, 0 when untracked
	ContentType   string
	ETag          string
}

// EntryData is the flat value copy of one listing entry.
type EntryData struct {
	Path     string
	Metadata Metadata
}

// Process-wide arenas, one per boxed type, mirroring the single flat
// namespace a shared library exports.
var (
	operators = handle.NewRegistry[*polystore.BlockingOperator]()
	listers   = handle.NewRegistry[*polystore.BlockingLister]()
)

// OperatorNew constructs an operator for scheme and boxes it. On
// failure the returned handle is zero and no slot is allocated.
func OperatorNew(scheme string, options map[string]string) (Handle, Status) {
	op, err := polystore.NewOperator(scheme, maps.Clone(options))
	if err != nil {
		return 0, statusFrom(err)
	}
	return operators.Put(op.Blocking()), Status{}
}

// OperatorFree closes the boxed operator and releases its handle.
// Listers derived from it stay boxed until their own free, but their
// calls fail once the operator is closed.
func OperatorFree(h Handle) Status {
	op, err := operators.Release(h)
	if err != nil {
		return statusFrom(err)
	}
	return statusFrom(op.Close())
}

// Stat returns the metadata of the object at path.
func Stat(h Handle, path string) (Metadata, Status) {
	op, err := operators.Get(h)
	if err != nil {
		return Metadata{}, statusFrom(err)
	}
	meta, err := op.Stat(path)
	if err != nil {
		return Metadata{}, statusFrom(err)
	}
	return metadataFrom(meta), Status{}
}

// IsExist reports whether an object exists at path.
func IsExist(h Handle, path string) (bool, Status) {
	op, err := operators.Get(h)
	if err != nil {
		return false, statusFrom(err)
	}
	exists, err := op.IsExist(path)
	return exists, statusFrom(err)
}

// Read returns a copy of the contents of the file at path.
func Read(h Handle, path string) ([]byte, Status) {
	op, err := operators.Get(h)
	if err != nil {
		return nil, statusFrom(err)
	}
	data, err := op.Read(path)
	if err != nil {
		return nil, statusFrom(err)
	}
	return slices.Clone(data), Status{}
}

// Write creates or replaces the file at path with a copy of data.
func Write(h Handle, path string, data []byte) Status {
	op, err := operators.Get(h)
	if err != nil {
		return statusFrom(err)
	}
	return statusFrom(op.Write(path, slices.Clone(data)))
}

// Delete removes the object at path.
func Delete(h Handle, path string) Status {
	op, err := operators.Get(h)
	if err != nil {
		return statusFrom(err)
	}
	return statusFrom(op.Delete(path))
}

// CreateDir creates the directory at path.
func CreateDir(h Handle, path string) Status {
	op, err := operators.Get(h)
	if err != nil {
		return statusFrom(err)
	}
	return statusFrom(op.CreateDir(path))
}

// Copy duplicates the file at src to dst.
func Copy(h Handle, src, dst string) Status {
	op, err := operators.Get(h)
	if err != nil {
		return statusFrom(err)
	}
	return statusFrom(op.Copy(src, dst))
}

// Rename moves the file at src to dst.
func Rename(h Handle, src, dst string) Status {
	op, err := operators.Get(h)
	if err != nil {
		return statusFrom(err)
	}
	return statusFrom(op.Rename(src, dst))
}

// ListBegin starts a listing of the directory at path and boxes its
// lister. On failure the returned handle is zero and no slot is
// allocated.
func ListBegin(h Handle, path string) (Handle, Status) {
	op, err := operators.Get(h)
	if err != nil {
		return 0, statusFrom(err)
	}
	lister, err := op.List(path)
	if err != nil {
		return 0, statusFrom(err)
	}
	return listers.Put(lister), Status{}
}

// ListerNext returns the next entry of a listing, or nil with a success
// Status once the listing is exhausted. The end is repeatable.
func ListerNext(h Handle) (*EntryData, Status) {
	lister, err := listers.Get(h)
	if err != nil {
		return nil, statusFrom(err)
	}
	entry, err := lister.Next()
	if err != nil {
		return nil, statusFrom(err)
	}
	if entry == nil {
		return nil, Status{}
	}
	ed := &EntryData{Path: entry.Path()}
	if m := entry.Metadata(); m != nil {
		ed.Metadata = metadataFrom(m)
	}
	return ed, Status{}
}

// ListerFree closes the boxed lister and releases its handle.
func ListerFree(h Handle) Status {
	lister, err := listers.Release(h)
	if err != nil {
		return statusFrom(err)
	}
	return statusFrom(lister.Close())
}

func metadataFrom(m *polystore.Metadata) Metadata {
	md := Metadata{
		Mode:          uint32(m.Mode()),
		ContentLength: m.ContentLength(),
		ContentType:   m.ContentType(),
		ETag:          m.ETag(),
	}
	if !m.LastModified().IsZero() {
		md.LastModified = m.LastModified().UnixMilli()
	}
	return md
}

// statusFrom flattens an error into the pair crossing the boundary.
func statusFrom(err error) Status {
	if err == nil {
		return Status{}
	}
	return Status{Code: int32(polystore.KindOf(err)), Message: err.Error()}
}
