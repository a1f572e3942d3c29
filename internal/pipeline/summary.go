package pipeline

import (
	"log"
	"time"

	"github.com/dustin/go-humanize"
)

// TableStats are the record counters of one parse pass.
type TableStats struct {
	Table     string
	Read      int64
	Accepted  int64
	Dropped   int64
	Malformed int64
	Duration  time.Duration
}

// DerivedStats are the sizes of the derived relations written by a run.
// Zero means the relation was not written.
type DerivedStats struct {
	Genres            int64
	GenreFilms        int64
	Professions       int64
	ProfessionPersons int64
	Jobs              int64
	PersonFilms       int64
}

// Summary describes a finished (or failed) run.
type Summary struct {
	RunID   string
	Resume  string
	Tables  []TableStats
	Derived DerivedStats
	Chunks  map[string]int
	Elapsed time.Duration
}

// Table returns the stats of one parsed table.
func (s Summary) Table(name string) (TableStats, bool) {
	for _, t := range s.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableStats{}, false
}

const thisMany = 3

// errAgg keeps the first few malformed-record reasons of a pass and how
// often each reason occurred.
type errAgg struct {
	limit   int
	count   int
	first   []string
	buckets map[string]int
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[string]int)}
}

func (a *errAgg) add(msg string) {
	a.buckets[msg]++
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
}

func (a *errAgg) log(table string) {
	if a.count == 0 {
		return
	}
	log.Printf("malformed: table=%s count=%d (showing first %d)", table, a.count, len(a.first))
	for i, s := range a.first {
		log.Printf("  #%03d: %s (x%d)", i+1, s, a.buckets[s])
	}
}

func logTableSummary(s TableStats) {
	log.Printf(
		"summary: table=%s read=%d accepted=%d dropped=%d malformed=%d dur=%s",
		s.Table, s.Read, s.Accepted, s.Dropped, s.Malformed, s.Duration.Truncate(time.Millisecond),
	)
	if s.Read != s.Accepted+s.Dropped+s.Malformed {
		log.Printf(
			"WARNING: row accounting mismatch: table=%s read=%d accounted=%d",
			s.Table, s.Read, s.Accepted+s.Dropped+s.Malformed,
		)
	}
}

func logRunSummary(s Summary) {
	var read, accepted int64
	for _, t := range s.Tables {
		read += t.Read
		accepted += t.Accepted
	}
	d := s.Derived
	log.Printf(
		"summary: run=%s read=%s accepted=%s genres=%d genre_film=%d professions=%d profession_person=%d jobs=%d person_film=%d elapsed=%s",
		s.RunID, humanize.Comma(read), humanize.Comma(accepted),
		d.Genres, d.GenreFilms, d.Professions, d.ProfessionPersons, d.Jobs, d.PersonFilms,
		s.Elapsed.Truncate(time.Millisecond),
	)
}
