package polystore

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
)

// Operator is the application-facing handle to one configured backend.
//
// An Operator is constructed once per backend configuration and shared:
// all methods are safe for concurrent use. Methods take a context and
// suspend cooperatively on it; Blocking derives the context-free calling
// convention from the same implementation.
//
// The Operator owns path normalization, capability gating, and error
// decoration, so services below it only ever see normalized paths and
// supported operations.
type Operator struct {
	accessor Accessor
	closed   atomic.Bool
}

// Layer wraps an Accessor with additional behavior such as logging,
// metrics, or retries. Layers compose like HTTP middleware; see the
// layers package for the built-in ones.
type Layer func(Accessor) Accessor

// NewOperator constructs an Operator for the given scheme.
//
// The scheme must have been registered by importing its service package.
// Options are service-specific string pairs; unknown schemes and invalid
// options fail with ConfigInvalid. A failed construction never yields a
// usable Operator.
func NewOperator(scheme string, options map[string]string) (*Operator, error) {
	factory, ok := lookupFactory(scheme)
	if !ok {
		return nil, Errorf(KindConfigInvalid, "unknown scheme %q, registered schemes: %v", scheme, Schemes()).
			WithOperation("new")
	}
	accessor, err := factory(options)
	if err != nil {
		return nil, decorate(err, "new", "")
	}
	return &Operator{accessor: accessor}, nil
}

// NewOperatorFrom wraps an already-constructed Accessor. It is the entry
// point for accessors built outside the registry, such as test doubles.
func NewOperatorFrom(accessor Accessor) *Operator {
	return &Operator{accessor: accessor}
}

// Info returns the identity and capability of the underlying service.
func (o *Operator) Info() AccessorInfo {
	return o.accessor.Info()
}

// Layer applies middleware to the operator, outermost first, and returns
// the operator for chaining. Apply layers during setup, before the
// operator is shared between goroutines.
func (o *Operator) Layer(layers ...Layer) *Operator {
	for i := len(layers) - 1; i >= 0; i-- {
		o.accessor = layers[i](o.accessor)
	}
	return o
}

// Blocking returns the context-free view of the operator. Both views
// share the same backend and may be used side by side.
func (o *Operator) Blocking() *BlockingOperator {
	return &BlockingOperator{op: o}
}

// Close invalidates the operator and releases backend resources.
//
// Close is idempotent. After Close every operation, and Next on any
// Lister obtained from this operator, fails with an Internal error.
func (o *Operator) Close() error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c, ok := o.accessor.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Stat returns the metadata of the object at path.
// Stat of an absent path fails with NotFound. Stat of the root always
// reports a directory.
func (o *Operator) Stat(ctx context.Context, path string) (*Metadata, error) {
	if err := o.ready("stat"); err != nil {
		return nil, err
	}
	p := NormalizePath(path)
	if !o.capability().Stat {
		return nil, unsupported("stat", p)
	}
	meta, err := o.accessor.Stat(ctx, p)
	if err != nil {
		return nil, decorate(err, "stat", p)
	}
	return meta, nil
}

// IsExist reports whether an object exists at path. It is derived from
// Stat: NotFound maps to false, any other failure is returned as-is.
func (o *Operator) IsExist(ctx context.Context, path string) (bool, error) {
	_, err := o.Stat(ctx, path)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read returns the full contents of the file at path.
func (o *Operator) Read(ctx context.Context, path string) ([]byte, error) {
	if err := o.ready("read"); err != nil {
		return nil, err
	}
	p, err := fileArg("read", path)
	if err != nil {
		return nil, err
	}
	if !o.capability().Read {
		return nil, unsupported("read", p)
	}
	data, err := o.accessor.Read(ctx, p)
	if err != nil {
		return nil, decorate(err, "read", p)
	}
	return data, nil
}

// ReadRange returns length bytes of the file at path starting at offset.
// A negative length means "through the end of the file". The range is
// clamped to the file size, so reading past the end yields the available
// suffix rather than an error.
func (o *Operator) ReadRange(ctx context.Context, path string, offset, length int64) ([]byte, error) {
	if offset < 0 {
		return nil, Errorf(KindConfigInvalid, "negative read offset %d", offset).
			WithOperation("read").WithPath(NormalizePath(path))
	}
	data, err := o.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	size := int64(len(data))
	if offset >= size {
		return []byte{}, nil
	}
	end := size
	if length >= 0 && offset+length < size {
		end = offset + length
	}
	return data[offset:end], nil
}

// Write creates or replaces the file at path with data. Parent
// directories appear implicitly; there is no need to CreateDir first.
//
// Write cancelled in flight fails with Indeterminate: the file may or
// may not have been replaced.
func (o *Operator) Write(ctx context.Context, path string, data []byte) error {
	if err := o.ready("write"); err != nil {
		return err
	}
	p, err := fileArg("write", path)
	if err != nil {
		return err
	}
	if !o.capability().Write {
		return unsupported("write", p)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return decorateMutation(o.accessor.Write(ctx, p, data), "write", p)
}

// Delete removes the object at path. Deleting an absent path succeeds;
// delete is idempotent and converges to "path absent".
func (o *Operator) Delete(ctx context.Context, path string) error {
	if err := o.ready("delete"); err != nil {
		return err
	}
	p := NormalizePath(path)
	if !o.capability().Delete {
		return unsupported("delete", p)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return decorateMutation(o.accessor.Delete(ctx, p), "delete", p)
}

// CreateDir creates the directory at path. The path is forced into
// directory form. Creating an existing directory succeeds; CreateDir is
// idempotent.
func (o *Operator) CreateDir(ctx context.Context, path string) error {
	if err := o.ready("create_dir"); err != nil {
		return err
	}
	p := NormalizeDir(path)
	if !o.capability().CreateDir {
		return unsupported("create_dir", p)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return decorateMutation(o.accessor.CreateDir(ctx, p), "create_dir", p)
}

// Copy duplicates the file at src to dst, replacing dst if it exists.
// Copying a path onto itself fails with IsSameFile.
func (o *Operator) Copy(ctx context.Context, src, dst string) error {
	return o.transfer(ctx, "copy", src, dst, o.capability().Copy, o.accessor.Copy)
}

// Rename moves the file at src to dst, replacing dst if it exists.
// Renaming a path onto itself fails with IsSameFile.
func (o *Operator) Rename(ctx context.Context, src, dst string) error {
	return o.transfer(ctx, "rename", src, dst, o.capability().Rename, o.accessor.Rename)
}

func (o *Operator) transfer(ctx context.Context, op, src, dst string, supported bool, call func(context.Context, string, string) error) error {
	if err := o.ready(op); err != nil {
		return err
	}
	s, err := fileArg(op, src)
	if err != nil {
		return err
	}
	d, err := fileArg(op, dst)
	if err != nil {
		return err
	}
	if s == d {
		return NewError(KindIsSameFile, "source and destination are the same file").
			WithOperation(op).WithPath(s)
	}
	if !supported {
		return unsupported(op, s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return decorateMutation(call(ctx, s, d), op, s)
}

// List starts a listing of the directory at path and returns its Lister.
//
// The path must be in directory form: "" or "/" for the root, otherwise
// ending in a slash. Listing a file path fails with NotADirectory. By
// default only direct children are listed; WithRecursive selects the
// whole subtree. Listing an absent directory yields an empty listing,
// not an error.
func (o *Operator) List(ctx context.Context, path string, opts ...ListOption) (*Lister, error) {
	if err := o.ready("list"); err != nil {
		return nil, err
	}
	var args ListArgs
	for _, opt := range opts {
		opt(&args)
	}
	p := NormalizePath(path)
	if !IsDirPath(p) {
		return nil, NewError(KindNotADirectory, "listing requires a directory path ending in /").
			WithOperation("list").WithPath(p)
	}
	c := o.capability()
	if !c.List {
		return nil, unsupported("list", p)
	}
	if args.Recursive && !c.ListWithRecursive {
		return nil, NewError(KindUnsupported, "recursive listing not supported by this service").
			WithOperation("list").WithPath(p)
	}
	pager, err := o.accessor.List(ctx, p, args)
	if err != nil {
		return nil, decorate(err, "list", p)
	}
	return newLister(o, pager, p), nil
}

// Check probes whether the backend is reachable and the configuration
// usable, by statting the root. An absent root counts as reachable.
func (o *Operator) Check(ctx context.Context) error {
	_, err := o.Stat(ctx, "/")
	if err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}

// Available reports the result of Check as a boolean.
func (o *Operator) Available(ctx context.Context) bool {
	return o.Check(ctx) == nil
}

// ListOption configures a listing.
type ListOption func(*ListArgs)

// WithRecursive lists the entire subtree instead of direct children.
func WithRecursive() ListOption {
	return func(a *ListArgs) { a.Recursive = true }
}

func (o *Operator) capability() Capability {
	return o.accessor.Info().Capability
}

func (o *Operator) ready(op string) error {
	if o.closed.Load() {
		return NewError(KindInternal, "operator is closed").WithOperation(op)
	}
	return nil
}

func (o *Operator) isClosed() bool {
	return o.closed.Load()
}

// fileArg normalizes a path argument for operations that only accept
// files.
func fileArg(op, path string) (string, error) {
	p := NormalizePath(path)
	if IsDirPath(p) {
		return "", NewError(KindIsADirectory, "operation requires a file path").
			WithOperation(op).WithPath(p)
	}
	return p, nil
}

func unsupported(op, path string) *Error {
	return NewError(KindUnsupported, "operation not supported by this service").
		WithOperation(op).WithPath(path)
}

// decorate ensures an error crossing the Operator boundary is an *Error
// carrying operation and path. Errors already carrying both pass through
// untouched; plain cancellation also passes through, read-only callers
// see the cause they triggered.
func decorate(err error, op, path string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.op != "" && e.path != "" {
			return err
		}
		d := *e
		if d.op == "" {
			d.op = op
		}
		if d.path == "" {
			d.path = path
		}
		return &d
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return NewError(KindInternal, "service error").
		WithOperation(op).WithPath(path).WithCause(err)
}

// decorateMutation additionally maps in-flight cancellation onto
// Indeterminate: the mutation was dispatched, so its effect on the
// backend is unknown.
func decorateMutation(err error, op, path string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindIndeterminate, "cancelled in flight, backend state unknown").
			WithOperation(op).WithPath(path).WithCause(err)
	}
	return decorate(err, op, path)
}
