package polystore

import "strings"

// Entry is one listing result: a normalized path plus the metadata known
// for it at listing time.
type Entry struct {
	path string
	meta *Metadata
}

// NewEntry creates an Entry. Services call this when producing pages;
// applications normally only consume entries.
func NewEntry(path string, meta *Metadata) Entry {
	return Entry{path: path, meta: meta}
}

// Path returns the entry's full normalized path, relative to the
// operator's root. Directory entries carry a trailing slash.
func (e Entry) Path() string {
	return e.path
}

// Name returns the last path segment, keeping the trailing slash for
// directories. The root entry returns "/".
func (e Entry) Name() string {
	p := e.path
	if p == "/" || p == "" {
		return "/"
	}
	trimmed := strings.TrimSuffix(p, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Metadata returns the metadata snapshot taken when the entry was listed.
func (e Entry) Metadata() *Metadata {
	return e.meta
}
