// Package all registers every built-in service by importing each one
// for its side effect. Binaries that want the full scheme table import
// it once; libraries should import only the services they use, to keep
// their dependency graphs small.
package all

import (
	_ "github.com/polystore/polystore/services/badger"
	_ "github.com/polystore/polystore/services/billy"
	_ "github.com/polystore/polystore/services/fs"
	_ "github.com/polystore/polystore/services/http"
	_ "github.com/polystore/polystore/services/memory"
	_ "github.com/polystore/polystore/services/mongodb"
	_ "github.com/polystore/polystore/services/nats"
	_ "github.com/polystore/polystore/services/pebble"
	_ "github.com/polystore/polystore/services/postgresql"
	_ "github.com/polystore/polystore/services/s3"
	_ "github.com/polystore/polystore/services/sqlite"
)
