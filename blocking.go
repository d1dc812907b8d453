package polystore

import "context"

// BlockingOperator is the context-free view of an Operator.
//
// Every method drives the corresponding context-taking method to
// completion with a background context, so both calling conventions
// share one backend implementation and produce identical outcomes. Use
// the Operator directly when cancellation or deadlines matter.
type BlockingOperator struct {
	op *Operator
}

// Operator returns the context-taking view this BlockingOperator was
// derived from.
func (b *BlockingOperator) Operator() *Operator {
	return b.op
}

// Info returns the identity and capability of the underlying service.
func (b *BlockingOperator) Info() AccessorInfo {
	return b.op.Info()
}

// Stat returns the metadata of the object at path.
func (b *BlockingOperator) Stat(path string) (*Metadata, error) {
	return b.op.Stat(context.Background(), path)
}

// IsExist reports whether an object exists at path.
func (b *BlockingOperator) IsExist(path string) (bool, error) {
	return b.op.IsExist(context.Background(), path)
}

// Read returns the full contents of the file at path.
func (b *BlockingOperator) Read(path string) ([]byte, error) {
	return b.op.Read(context.Background(), path)
}

// ReadRange returns length bytes of the file at path starting at offset.
func (b *BlockingOperator) ReadRange(path string, offset, length int64) ([]byte, error) {
	return b.op.ReadRange(context.Background(), path, offset, length)
}

// Write creates or replaces the file at path with data.
func (b *BlockingOperator) Write(path string, data []byte) error {
	return b.op.Write(context.Background(), path, data)
}

// Delete removes the object at path.
func (b *BlockingOperator) Delete(path string) error {
	return b.op.Delete(context.Background(), path)
}

// CreateDir creates the directory at path.
func (b *BlockingOperator) CreateDir(path string) error {
	return b.op.CreateDir(context.Background(), path)
}

// Copy duplicates the file at src to dst.
func (b *BlockingOperator) Copy(src, dst string) error {
	return b.op.Copy(context.Background(), src, dst)
}

// Rename moves the file at src to dst.
func (b *BlockingOperator) Rename(src, dst string) error {
	return b.op.Rename(context.Background(), src, dst)
}

// List starts a listing of the directory at path.
func (b *BlockingOperator) List(path string, opts ...ListOption) (*BlockingLister, error) {
	lister, err := b.op.List(context.Background(), path, opts...)
	if err != nil {
		return nil, err
	}
	return &BlockingLister{lister: lister}, nil
}

// Check probes whether the backend is reachable.
func (b *BlockingOperator) Check() error {
	return b.op.Check(context.Background())
}

// Available reports the result of Check as a boolean.
func (b *BlockingOperator) Available() bool {
	return b.op.Available(context.Background())
}

// Close invalidates the underlying operator.
func (b *BlockingOperator) Close() error {
	return b.op.Close()
}

// BlockingLister is the context-free view of a Lister. It shares the
// Lister's buffer, stickiness, and close semantics.
type BlockingLister struct {
	lister *Lister
}

// Next returns the next entry of the listing, or (nil, nil) once the
// listing is exhausted.
func (l *BlockingLister) Next() (*Entry, error) {
	return l.lister.Next(context.Background())
}

// All drains the rest of the listing into a slice.
func (l *BlockingLister) All() ([]Entry, error) {
	return l.lister.All(context.Background())
}

// Close releases the listing. Closing twice is a no-op.
func (l *BlockingLister) Close() error {
	return l.lister.Close()
}
