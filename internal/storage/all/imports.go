// Package all wires all built-in destinations into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the storage package and their dialects with the
// schema translator.
//
// Importing this package makes the following destination kinds available:
//
//   - "dremio"   (dwetl/internal/storage/dremio)
//   - "silver"   (dwetl/internal/storage/silver)
//   - "postgres" (dwetl/internal/storage/postgres)
//   - "mssql"    (dwetl/internal/storage/mssql)
//   - "mysql"    (dwetl/internal/storage/mysql)
//   - "sqlite"   (dwetl/internal/storage/sqlite)
//
// Typical usage (in cmd/dwetl or a similar wiring layer):
//
//	import _ "dwetl/internal/storage/all" // enable all built-in backends
//
//	dest, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: dsn})
//	if err != nil {
//	    // handle error
//	}
//	defer dest.Close()
//
// A binary that supports only a subset of destinations can import the
// backend packages it needs instead of this one.
package all

import (
	_ "dwetl/internal/storage/dremio"
	_ "dwetl/internal/storage/mssql"
	_ "dwetl/internal/storage/mysql"
	_ "dwetl/internal/storage/postgres"
	_ "dwetl/internal/storage/silver"
	_ "dwetl/internal/storage/sqlite"
)
