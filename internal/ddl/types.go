package ddl

import "strings"

// ColumnDef describes a single column of a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., BIGINT, TEXT, NVARCHAR(400))
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. The FQN is in dotted form ("schema.table") and each segment is
// quoted separately by the dialect.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect captures the handful of differences between the SQL engines the
// loader targets. The zero value renders plain, unquoted SQL.
type Dialect struct {
	// Name is used in error messages ("sqlite ddl: ...").
	Name string

	// Quote quotes one identifier segment. Nil leaves identifiers as-is.
	Quote func(string) string

	// IfNotExists adds IF NOT EXISTS to CREATE TABLE.
	IfNotExists bool

	// Guard, when set, wraps the finished CREATE TABLE statement. It receives
	// the quoted FQN. SQL Server uses it for its IF OBJECT_ID(...) check.
	Guard func(quotedFQN, create string) string
}

// DoubleQuote quotes an identifier ANSI style: name -> "name".
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// Backtick quotes a MySQL identifier: name -> `name`.
func Backtick(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// Bracket quotes a SQL Server identifier: name -> [name].
func Bracket(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
