// Package layers provides composable middleware for Operators.
//
// A layer wraps an Accessor and returns another, adding one concern
// without touching the storage semantics: logging, metrics, retries, or
// concurrency limits. Layers are applied with Operator.Layer, outermost
// first:
//
//	op, _ := polystore.NewOperator("s3", opts)
//	op.Layer(
//	    layers.Logging(logger),
//	    layers.Retry(),
//	)
//
// Here every retry attempt is logged, because the logging layer sits
// outside the retry layer.
package layers

import (
	"io"

	"github.com/polystore/polystore"
)

// closeInner forwards Close to the wrapped accessor when it has one, so
// operator shutdown reaches the service through any layer stack.
func closeInner(a polystore.Accessor) error {
	if c, ok := a.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// closePager forwards Close to the wrapped pager when it has one.
func closePager(p polystore.Pager) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
