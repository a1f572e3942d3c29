// Package schema is the catalogue of normalized output tables: their names,
// ordered columns, column kinds and keys. Writers, resume readers, the
// splitter and the loader all agree on table layout through it.
package schema

import (
	"fmt"

	"imdbnorm/internal/ddl"
)

// Kind is the logical type of a column. The loader converts text fields by
// kind and each storage dialect maps kinds onto SQL types.
type Kind int

const (
	Int Kind = iota
	Real
	Text
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Real:
		return "real"
	case Text:
		return "text"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Column is one output column. An empty field in a Nullable column is null.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// Table describes one normalized output file. Key lists the primary key
// columns; the first column always holds the entity id used by resume.
type Table struct {
	Name    string
	Columns []Column
	Key     []string
}

// Output table names.
const (
	Film             = "film"
	Person           = "person"
	Principal        = "principal"
	Rating           = "rating"
	Genre            = "genre"
	GenreFilm        = "genre_film"
	Profession       = "profession"
	ProfessionPerson = "profession_person"
	Job              = "job"
	PersonFilm       = "person_film"
)

func col(name string, k Kind) Column { return Column{Name: name, Kind: k} }

func nullable(name string, k Kind) Column { return Column{Name: name, Kind: k, Nullable: true} }

func dict(name string) Table {
	return Table{Name: name, Columns: []Column{col("id", Int), col("name", Text)}, Key: []string{"id"}}
}

func bridge(name, left, right string) Table {
	return Table{Name: name, Columns: []Column{col(left, Int), col(right, Int)}, Key: []string{left, right}}
}

var tables = []Table{
	{
		Name: Film,
		Columns: []Column{
			col("id", Int),
			col("primary_title", Text),
			col("is_adult", Int),
			nullable("start_year", Int),
			nullable("runtime_minutes", Int),
		},
		Key: []string{"id"},
	},
	{
		Name: Person,
		Columns: []Column{
			col("id", Int),
			col("primary_name", Text),
			nullable("birth_year", Int),
			nullable("death_year", Int),
		},
		Key: []string{"id"},
	},
	{
		Name: Principal,
		Columns: []Column{
			col("id", Int),
			col("film_id", Int),
			col("person_id", Int),
			col("job_id", Int),
			nullable("job", Text),
			nullable("characters", Text),
		},
		Key: []string{"id"},
	},
	{
		Name: Rating,
		Columns: []Column{
			col("id", Int),
			nullable("average_rating", Real),
			nullable("num_votes", Int),
			col("film_id", Int),
		},
		Key: []string{"id"},
	},
	dict(Genre),
	bridge(GenreFilm, "genre_id", "film_id"),
	dict(Profession),
	bridge(ProfessionPerson, "profession_id", "person_id"),
	dict(Job),
	bridge(PersonFilm, "person_id", "film_id"),
}

var byName = func() map[string]Table {
	m := make(map[string]Table, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return m
}()

// Tables returns every output table in write order: entity tables first, then
// derived dictionaries and bridges.
func Tables() []Table {
	out := make([]Table, len(tables))
	copy(out, tables)
	return out
}

// TableNames returns the names of Tables in the same order.
func TableNames() []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Name
	}
	return out
}

// Lookup returns the table called name.
func Lookup(name string) (Table, bool) {
	t, ok := byName[name]
	return t, ok
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) Table {
	t, ok := byName[name]
	if !ok {
		panic("schema: unknown table " + name)
	}
	return t
}

// ColumnNames returns the ordered column names of t.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// TableDef renders t as a DDL model, mapping kinds through typeOf. prefix is
// prepended to the table name (e.g. "imdb." for a schema-qualified target).
func (t Table) TableDef(prefix string, typeOf func(Kind) string) ddl.TableDef {
	key := make(map[string]bool, len(t.Key))
	for _, k := range t.Key {
		key[k] = true
	}
	def := ddl.TableDef{FQN: prefix + t.Name, Columns: make([]ddl.ColumnDef, len(t.Columns))}
	for i, c := range t.Columns {
		def.Columns[i] = ddl.ColumnDef{
			Name:       c.Name,
			SQLType:    typeOf(c.Kind),
			Nullable:   c.Nullable,
			PrimaryKey: key[c.Name],
		}
	}
	return def
}
