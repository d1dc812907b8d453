package polystore

import "time"

// EntryMode distinguishes files from directories in listing and stat
// results.
type EntryMode int

const (
	// EntryModeUnknown indicates the backend could not determine the mode.
	EntryModeUnknown EntryMode = iota
	// EntryModeFile indicates a regular object holding bytes.
	EntryModeFile
	// EntryModeDir indicates a directory: a prefix that may contain
	// children. Directory paths always carry a trailing slash.
	EntryModeDir
)

// String returns a string representation of the EntryMode.
func (m EntryMode) String() string {
	switch m {
	case EntryModeFile:
		return "file"
	case EntryModeDir:
		return "dir"
	default:
		return "unknown"
	}
}

// IsFile reports whether the mode is EntryModeFile.
func (m EntryMode) IsFile() bool {
	return m == EntryModeFile
}

// IsDir reports whether the mode is EntryModeDir.
func (m EntryMode) IsDir() bool {
	return m == EntryModeDir
}

// Metadata is an immutable snapshot of an object's attributes, taken at
// the time of the stat or list call that produced it. It never updates
// itself afterwards.
//
// Services build Metadata fluently:
//
//	meta := polystore.NewMetadata(polystore.EntryModeFile).
//	    WithContentLength(int64(len(data))).
//	    WithLastModified(info.ModTime())
//
// Callers read it through getters only.
type Metadata struct {
	mode          EntryMode
	contentLength int64
	lastModified  time.Time
	contentType   string
	etag          string
}

// NewMetadata creates a Metadata snapshot with the given mode.
func NewMetadata(mode EntryMode) *Metadata {
	return &Metadata{mode: mode}
}

// WithContentLength records the object size in bytes.
// It returns the receiver for chaining.
func (m *Metadata) WithContentLength(n int64) *Metadata {
	m.contentLength = n
	return m
}

// WithLastModified records the last modification time.
// It returns the receiver for chaining.
func (m *Metadata) WithLastModified(t time.Time) *Metadata {
	m.lastModified = t
	return m
}

// WithContentType records the MIME type reported by the backend.
// It returns the receiver for chaining.
func (m *Metadata) WithContentType(ct string) *Metadata {
	m.contentType = ct
	return m
}

// WithETag records the entity tag reported by the backend.
// It returns the receiver for chaining.
func (m *Metadata) WithETag(etag string) *Metadata {
	m.etag = etag
	return m
}

// Mode returns the entry mode.
func (m *Metadata) Mode() EntryMode {
	return m.mode
}

// IsFile reports whether the object is a regular file.
func (m *Metadata) IsFile() bool {
	return m.mode.IsFile()
}

// IsDir reports whether the object is a directory.
func (m *Metadata) IsDir() bool {
	return m.mode.IsDir()
}

// ContentLength returns the object size in bytes.
// Directories report zero.
func (m *Metadata) ContentLength() int64 {
	return m.contentLength
}

// LastModified returns the last modification time.
// The zero time means the backend does not track it.
func (m *Metadata) LastModified() time.Time {
	return m.lastModified
}

// ContentType returns the MIME type, or "" if the backend does not
// report one.
func (m *Metadata) ContentType() string {
	return m.contentType
}

// ETag returns the entity tag, or "" if the backend does not report one.
func (m *Metadata) ETag() string {
	return m.etag
}
