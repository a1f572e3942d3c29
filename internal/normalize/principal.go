package normalize

import (
	"strconv"

	"imdbnorm/internal/ident"
	"imdbnorm/internal/parser/tsv"
	"imdbnorm/internal/schema"
)

// Principal normalizes cast/crew records. A record is kept only when both
// its film and its person were accepted earlier in the run; anything else is
// dropped silently since most principals reference filtered-out titles.
type Principal struct {
	st  *State
	seq uint64
}

func (*Principal) Table() string { return schema.Principal }

func (*Principal) Columns() []string {
	return []string{"tconst", "nconst", "category", "job", "characters"}
}

func (n *Principal) Normalize(rec tsv.Record) (Row, error) {
	f := fields{rec: rec}
	tconst := f.get("tconst")
	nconst := f.get("nconst")
	category := f.get("category")
	job := f.get("job")
	characters := f.get("characters")
	if f.err != nil {
		return nil, malformed(schema.Principal, rec, f.err.Error(), f.err)
	}

	film, ok := ident.ToInt(tconst)
	if !ok || !n.st.Films.Has(film) {
		return nil, nil
	}
	person, ok := ident.ToInt(nconst)
	if !ok || !n.st.Persons.Has(person) {
		return nil, nil
	}
	category = ident.Nullify(category)
	if category == "" {
		return nil, malformed(schema.Principal, rec, "empty category", nil)
	}

	code := n.st.Jobs.Code(category)
	n.st.PersonFilm.Add(person, film)
	n.seq++

	return Row{
		formatID(n.seq),
		formatID(film),
		formatID(person),
		strconv.Itoa(code),
		ident.Nullify(job),
		ident.Nullify(characters),
	}, nil
}
