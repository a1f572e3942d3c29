// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:imdb.db?_pragma=busy_timeout(5000)"
	//   "imdb.db" (interpreted by the driver)
	DSN string

	// Table is the target table name for inserts, e.g. "film". SQLite has no
	// schemas in the Postgres sense; "main.film" is still accepted.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string

	// KeyColumns is carried for parity with the other backends.
	KeyColumns []string
}
