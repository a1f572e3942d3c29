// Package ddl is a small, backend-agnostic model for SQL DDL plus a renderer
// for CREATE TABLE statements. Storage backends describe their SQL dialect
// with a Dialect value; the table layout itself comes from internal/schema.
package ddl

import (
	"fmt"
	"strings"
)

// QuoteFQN quotes each dotted segment of fqn with quote. Empty segments are
// dropped.
//
//	"imdb.film" -> "imdb"."film"   (DoubleQuote)
//	"film"      -> [film]          (Bracket)
func QuoteFQN(fqn string, quote func(string) string) string {
	if quote == nil {
		return fqn
	}
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}

// BuildCreateTableSQL renders a CREATE TABLE statement for t in dialect d.
//
// A column is rendered as
//
//	<Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
// and primary key columns are collected into a trailing PRIMARY KEY clause.
// FQN and every column need a name and every column a SQLType.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	prefix := "ddl"
	if d.Name != "" {
		prefix = d.Name + " ddl"
	}
	quote := d.Quote
	if quote == nil {
		quote = func(s string) string { return s }
	}

	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", prefix)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", prefix)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", prefix, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", prefix, name)
		}

		var sb strings.Builder
		sb.WriteString(quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := QuoteFQN(fqn, d.Quote)
	head := "CREATE TABLE "
	if d.IfNotExists {
		head += "IF NOT EXISTS "
	}
	stmt := fmt.Sprintf("%s%s (\n  %s\n);", head, quoted, strings.Join(cols, ",\n  "))
	if d.Guard != nil {
		stmt = d.Guard(quoted, stmt)
	}
	return stmt, nil
}
