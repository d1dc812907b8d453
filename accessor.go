package polystore

import "context"

// AccessorInfo identifies a constructed backend instance.
type AccessorInfo struct {
	// Scheme is the registry scheme the accessor was constructed under,
	// e.g. "s3" or "memory".
	Scheme string

	// Name identifies the backing store instance, e.g. a bucket name,
	// a database name, or "" where the backend has no such notion.
	Name string

	// Root is the path prefix all operations are scoped under.
	Root string

	// Capability declares the operations the accessor natively supports.
	Capability Capability
}

// ListArgs carries the options of a single listing.
type ListArgs struct {
	// Recursive selects a full subtree listing instead of direct
	// children only.
	Recursive bool
}

// Accessor is the contract a backend service implements.
//
// Accessors sit below the Operator and are not used directly by
// applications: the Operator normalizes paths, checks capabilities, and
// decorates errors before and after every accessor call. An accessor may
// therefore assume its inputs are normalized (forward slashes, no leading
// slash except the root "/", trailing slash marking a directory) and
// within its declared capability.
//
// Every method takes a context and honors its cancellation; this is the
// suspendable primitive that both the context-first Operator surface and
// the BlockingOperator are built from.
//
// Accessors that hold OS resources (connections, file handles, embedded
// databases) additionally implement io.Closer; the Operator closes them
// when itself closed. Callers check the capability with a type assertion,
// the same way optional file capabilities are handled in io/fs based
// code.
type Accessor interface {
	// Info returns the accessor's identity and capability. It must be
	// cheap and never fail.
	Info() AccessorInfo

	// Stat returns the metadata of the object at path.
	// Stat of the root path "/" succeeds with a directory metadata even
	// on backends with no physical root object.
	Stat(ctx context.Context, path string) (*Metadata, error)

	// Read returns the full contents of the file at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write creates or replaces the file at path with data.
	// Parent directories do not need to exist beforehand.
	Write(ctx context.Context, path string, data []byte) error

	// Delete removes the object at path. Deleting an absent path is not
	// an error; delete is idempotent.
	Delete(ctx context.Context, path string) error

	// CreateDir creates the directory at path. Creating an existing
	// directory is not an error; CreateDir is idempotent.
	CreateDir(ctx context.Context, path string) error

	// Copy duplicates the file at src to dst, replacing dst if present.
	Copy(ctx context.Context, src, dst string) error

	// Rename moves the file at src to dst, replacing dst if present.
	Rename(ctx context.Context, src, dst string) error

	// List starts a listing under path and returns its Pager.
	// The listing is computed lazily: backends fetch entries page by
	// page as the pager is driven.
	List(ctx context.Context, path string, args ListArgs) (Pager, error)
}

// Pager is the raw paginated listing produced by an Accessor.
//
// NextPage returns the next batch of entries. It returns io.EOF once the
// listing is exhausted; a page may be empty without meaning exhaustion.
// In-memory backends typically return the whole listing as one page,
// remote backends one page per protocol fetch.
//
// Pagers are single-consumer. The public Lister wraps a Pager and adds
// the buffering, poisoning, and close semantics applications rely on.
type Pager interface {
	NextPage(ctx context.Context) ([]Entry, error)
}
