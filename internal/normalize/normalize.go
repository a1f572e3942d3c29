// Package normalize turns decoded raw records into normalized rows and keeps
// the cross-table state of a run: the Film and Person index sets and the
// derived-relation accumulators (genres, professions, jobs, person/film
// pairs).
//
// Every source table has one Normalizer. Normalize returns either a row, a
// nil row (the record was filtered out on purpose), or a *RecordError for a
// malformed record. It never panics and never aborts the pass.
package normalize

import (
	"fmt"
	"sort"
	"strconv"

	"imdbnorm/internal/ident"
	"imdbnorm/internal/parser/tsv"
	"imdbnorm/internal/schema"
)

// Row is one normalized output row, one string per schema column. An empty
// string is a null.
type Row []string

// Normalizer transforms raw records of one source table.
type Normalizer interface {
	// Table is the output table, also used as the error log key.
	Table() string
	// Columns lists the raw header columns Normalize reads.
	Columns() []string
	// Normalize returns the output row for rec. (nil, nil) means the record
	// was dropped by a filter.
	Normalize(rec tsv.Record) (Row, error)
}

// Factory builds a Normalizer bound to a run context.
type Factory func(*State) Normalizer

var registry = map[string]Factory{
	schema.Film:      func(st *State) Normalizer { return &Film{st: st} },
	schema.Person:    func(st *State) Normalizer { return &Person{st: st} },
	schema.Principal: func(st *State) Normalizer { return &Principal{st: st} },
	schema.Rating:    func(st *State) Normalizer { return &Rating{st: st} },
}

// Sources lists the source tables in processing order. Film and Person must
// complete before Principal and Rating because those filter against the
// Film and Person indexes.
func Sources() []string {
	return []string{schema.Film, schema.Person, schema.Principal, schema.Rating}
}

// For returns the normalizer of table bound to st.
func For(table string, st *State) (Normalizer, error) {
	f, ok := registry[table]
	if !ok {
		known := make([]string, 0, len(registry))
		for k := range registry {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("no normalizer for table %q (known: %v)", table, known)
	}
	return f(st), nil
}

// MissingColumns returns the columns n needs that header lacks.
func MissingColumns(n Normalizer, header *tsv.Header) []string {
	var missing []string
	for _, c := range n.Columns() {
		if !header.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// fields reads several columns of one record and remembers the first access
// failure so a normalizer can fetch everything up front and check once.
type fields struct {
	rec tsv.Record
	err error
}

func (f *fields) get(name string) string {
	if f.err != nil {
		return ""
	}
	v, err := f.rec.Field(name)
	if err != nil {
		f.err = err
	}
	return v
}

func malformed(table string, rec tsv.Record, reason string, err error) *RecordError {
	return &RecordError{Table: table, Line: rec.Line, Reason: reason, Record: rec.Map(), Err: err}
}

func quote(s string) string { return strconv.Quote(s) }

func formatID(id uint64) string { return strconv.FormatUint(id, 10) }

// optionalInt normalizes a nullable integer field. Values that are null or
// not integers become the empty (null) field.
func optionalInt(v string) string {
	v = ident.Nullify(v)
	if v == "" {
		return ""
	}
	if _, err := strconv.ParseInt(v, 10, 64); err != nil {
		return ""
	}
	return v
}

// optionalReal is optionalInt for decimal fields.
func optionalReal(v string) string {
	v = ident.Nullify(v)
	if v == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return ""
	}
	return v
}
