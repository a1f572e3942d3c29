// Package all wires all built-in storage backends into the storage factory.
//
// It exists purely for side effects: a blank import runs the init functions
// of every backend, which register their factories and DDL renderings with
// the storage package. After importing it, these kinds are available:
//
//   - "postgres" (imdbnorm/internal/storage/postgres)
//   - "mssql"    (imdbnorm/internal/storage/mssql)
//   - "mysql"    (imdbnorm/internal/storage/mysql)
//   - "sqlite"   (imdbnorm/internal/storage/sqlite)
//
// Typical usage, in cmd/imdbnorm:
//
//	import _ "imdbnorm/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN, Table: "film"})
//
// A binary that needs only some backends can import those packages directly
// instead.
package all

import (
	_ "imdbnorm/internal/storage/mssql"
	_ "imdbnorm/internal/storage/mysql"
	_ "imdbnorm/internal/storage/postgres"
	_ "imdbnorm/internal/storage/sqlite"
)
