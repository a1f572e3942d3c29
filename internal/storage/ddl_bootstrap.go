package storage

import (
	"context"
	"fmt"
	"sync"

	"imdbnorm/internal/ddl"
	"imdbnorm/internal/schema"
)

// DDL describes how a backend renders CREATE TABLE for the schema catalogue.
type DDL struct {
	Dialect ddl.Dialect
	// TypeOf maps a column kind to the backend's SQL type.
	TypeOf func(schema.Kind) string
	// SingleWriter is set for engines that serialize writers (SQLite); the
	// loader then uses one worker whatever the configuration says.
	SingleWriter bool
}

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDL{}
)

// RegisterDDL registers (or replaces) the DDL rendering of kind. Backends
// call it from init next to Register.
func RegisterDDL(kind string, d DDL) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = d
}

// LookupDDL returns the DDL rendering registered for kind.
func LookupDDL(kind string) (DDL, bool) {
	ddlMu.RLock()
	defer ddlMu.RUnlock()
	d, ok := ddlFns[kind]
	return d, ok
}

// CreateTableSQL renders the CREATE TABLE statement of t for kind. prefix
// qualifies the table name ("imdb." or "").
func CreateTableSQL(kind string, t schema.Table, prefix string) (string, error) {
	d, ok := LookupDDL(kind)
	if !ok {
		return "", fmt.Errorf("no DDL registered for storage.kind=%q", kind)
	}
	return ddl.BuildCreateTableSQL(t.TableDef(prefix, d.TypeOf), d.Dialect)
}

// EnsureTable creates t through repo unless it already exists.
func EnsureTable(ctx context.Context, kind string, repo Repository, t schema.Table, prefix string) error {
	stmt, err := CreateTableSQL(kind, t, prefix)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s%s: %w", prefix, t.Name, err)
	}
	return nil
}
