package normalize

import (
	"imdbnorm/internal/ident"
	"imdbnorm/internal/parser/tsv"
	"imdbnorm/internal/schema"
)

// Person normalizes name records. Accepted ids go into the Person index,
// professions into the profession accumulator, and known-for titles that
// survived the Film filter into the person/film pair set.
type Person struct{ st *State }

func (*Person) Table() string { return schema.Person }

func (*Person) Columns() []string {
	return []string{"nconst", "primaryName", "birthYear", "deathYear", "primaryProfession", "knownForTitles"}
}

func (n *Person) Normalize(rec tsv.Record) (Row, error) {
	f := fields{rec: rec}
	nconst := f.get("nconst")
	name := f.get("primaryName")
	birth := f.get("birthYear")
	death := f.get("deathYear")
	professions := f.get("primaryProfession")
	knownFor := f.get("knownForTitles")
	if f.err != nil {
		return nil, malformed(schema.Person, rec, f.err.Error(), f.err)
	}

	id, ok := ident.ToInt(nconst)
	if !ok {
		return nil, malformed(schema.Person, rec, "invalid nconst "+quote(nconst), nil)
	}

	n.st.Persons.Add(id)
	for _, p := range ident.SplitList(professions) {
		n.st.Professions.Add(p, id)
	}
	for _, t := range ident.SplitList(knownFor) {
		if film, ok := ident.ToInt(t); ok && n.st.Films.Has(film) {
			n.st.PersonFilm.Add(id, film)
		}
	}

	return Row{formatID(id), ident.Nullify(name), optionalInt(birth), optionalInt(death)}, nil
}
