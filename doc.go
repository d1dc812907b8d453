// Package polystore provides one storage API over many backends.
//
// Applications program against an Operator; services adapt a concrete
// backend (local filesystem, S3, embedded and remote key-value stores,
// SQL databases, HTTP servers) to the Accessor contract and register a
// scheme for it. The same calling code then runs against any backend by
// changing only the scheme and options used at construction.
//
// # Construction
//
// Services register themselves on import. Enable a scheme with a blank
// import and construct an Operator from the scheme name and a string
// option map:
//
//	import (
//	    "github.com/polystore/polystore"
//	    _ "github.com/polystore/polystore/services/memory"
//	)
//
//	op, err := polystore.NewOperator("memory", nil)
//	if err != nil {
//	    return err
//	}
//	defer op.Close()
//
// Unknown schemes and invalid options fail construction with a
// ConfigInvalid error; a failed construction never yields an operator.
//
// # Calling conventions
//
// Operator methods take a context.Context and suspend cooperatively.
// The BlockingOperator view offers the same operations without contexts
// for callers that have none:
//
//	data, err := op.Read(ctx, "logs/today.txt")
//	data, err = op.Blocking().Read("logs/today.txt")
//
// Both views share one backend and produce identical outcomes.
//
// # Paths
//
// Paths are normalized before they reach a backend: forward slashes,
// no leading slash, "." and ".." collapsed. A trailing slash marks a
// directory; "a/b" and "a/b/" name different things. The root is "/".
//
// # Errors
//
// Every failure carries an ErrorKind from a closed set with stable
// numeric codes. Branch on the kind, not on message text:
//
//	if polystore.IsNotFound(err) {
//	    ...
//	}
//
// Errors also match the io/fs sentinels through errors.Is, so existing
// fs.ErrNotExist checks keep working.
//
// # Capabilities
//
// Not every backend supports every operation. The Capability reported
// by Info declares what the backend can do, and operations outside it
// fail fast with an Unsupported error instead of reaching the backend.
//
// # Listing
//
// List returns a Lister that streams entries page by page, so listing a
// directory of any size runs in bounded memory:
//
//	lister, err := op.List(ctx, "logs/")
//	if err != nil {
//	    return err
//	}
//	defer lister.Close()
//	for {
//	    entry, err := lister.Next(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    if entry == nil {
//	        break
//	    }
//	    fmt.Println(entry.Path())
//	}
//
// # Layers
//
// Cross-cutting behavior wraps the operator as middleware; see the
// layers package for logging, metrics, retry, and concurrency limiting.
package polystore
