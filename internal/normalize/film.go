package normalize

import (
	"imdbnorm/internal/ident"
	"imdbnorm/internal/parser/tsv"
	"imdbnorm/internal/schema"
)

// Film normalizes title records. Only titles whose type is on the allow-list
// are accepted; accepted ids go into the Film index and their genres into
// the genre accumulator.
type Film struct{ st *State }

func (*Film) Table() string { return schema.Film }

func (*Film) Columns() []string {
	return []string{"tconst", "titleType", "primaryTitle", "isAdult", "startYear", "runtimeMinutes", "genres"}
}

func (n *Film) Normalize(rec tsv.Record) (Row, error) {
	f := fields{rec: rec}
	tconst := f.get("tconst")
	titleType := f.get("titleType")
	title := f.get("primaryTitle")
	adult := f.get("isAdult")
	start := f.get("startYear")
	runtime := f.get("runtimeMinutes")
	genres := f.get("genres")
	if f.err != nil {
		return nil, malformed(schema.Film, rec, f.err.Error(), f.err)
	}

	if !n.st.AllowsFilmType(titleType) {
		return nil, nil
	}
	id, ok := ident.ToInt(tconst)
	if !ok {
		return nil, malformed(schema.Film, rec, "invalid tconst "+quote(tconst), nil)
	}

	n.st.Films.Add(id)
	for _, g := range ident.SplitList(genres) {
		n.st.Genres.Add(g, id)
	}

	isAdult := "0"
	if adult == "1" {
		isAdult = "1"
	}
	return Row{formatID(id), ident.Nullify(title), isAdult, optionalInt(start), optionalInt(runtime)}, nil
}
