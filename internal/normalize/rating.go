package normalize

import (
	"imdbnorm/internal/ident"
	"imdbnorm/internal/parser/tsv"
	"imdbnorm/internal/schema"
)

// Rating normalizes rating records of accepted films.
type Rating struct {
	st  *State
	seq uint64
}

func (*Rating) Table() string { return schema.Rating }

func (*Rating) Columns() []string {
	return []string{"tconst", "averageRating", "numVotes"}
}

func (n *Rating) Normalize(rec tsv.Record) (Row, error) {
	f := fields{rec: rec}
	tconst := f.get("tconst")
	avg := f.get("averageRating")
	votes := f.get("numVotes")
	if f.err != nil {
		return nil, malformed(schema.Rating, rec, f.err.Error(), f.err)
	}

	film, ok := ident.ToInt(tconst)
	if !ok || !n.st.Films.Has(film) {
		return nil, nil
	}
	n.seq++
	return Row{formatID(n.seq), optionalReal(avg), optionalInt(votes), formatID(film)}, nil
}
