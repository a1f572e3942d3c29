package normalize

import (
	"math"

	"imdbnorm/internal/bitmap"
)

// State is the run context shared by the normalizers: the accepted-id index
// sets and every derived-relation accumulator. It is mutated by exactly one
// pass at a time and is not safe for concurrent use.
type State struct {
	Films   bitmap.Bitmap
	Persons bitmap.Bitmap

	Genres      Categories
	Professions Categories
	Jobs        JobDictionary
	PersonFilm  PairSet

	Errors *ErrorLog

	filmTypes map[string]struct{}
}

// NewState returns an empty run context. filmTypes is the title type
// allow-list of the Film pass; an empty list accepts every type.
// errorLimit caps the raw records kept per table in the error log (0 keeps
// all of them).
func NewState(filmTypes []string, errorLimit int) *State {
	st := &State{Errors: NewErrorLog(errorLimit)}
	if len(filmTypes) > 0 {
		st.filmTypes = make(map[string]struct{}, len(filmTypes))
		for _, t := range filmTypes {
			st.filmTypes[t] = struct{}{}
		}
	}
	return st
}

// AllowsFilmType reports whether titles of type t pass the Film filter.
func (s *State) AllowsFilmType(t string) bool {
	if s.filmTypes == nil {
		return true
	}
	_, ok := s.filmTypes[t]
	return ok
}

// Categories accumulates label -> entity ids for a dictionary/bridge pair
// (genre/genre_film, profession/profession_person). Labels keep first-seen
// order, which fixes their 1-based dictionary index.
type Categories struct {
	order []string
	ids   map[string][]uint64
	pairs int
}

// Add appends id to label's list, registering label on first sight. A
// repeat of the last id under label is ignored.
func (c *Categories) Add(label string, id uint64) {
	if c.ids == nil {
		c.ids = make(map[string][]uint64)
	}
	list, ok := c.ids[label]
	if !ok {
		c.order = append(c.order, label)
	}
	// Ids arrive one record at a time, so a label repeated inside a record
	// shows up as the same id at the tail.
	if n := len(list); n > 0 && list[n-1] == id {
		return
	}
	c.ids[label] = append(list, id)
	c.pairs++
}

// Len returns the number of distinct labels.
func (c *Categories) Len() int { return len(c.order) }

// Pairs returns the number of (label, id) entries, i.e. bridge rows.
func (c *Categories) Pairs() int { return c.pairs }

// IDs returns the ids collected under label.
func (c *Categories) IDs(label string) []uint64 { return c.ids[label] }

// Each calls fn for every label in dictionary order with its 1-based index.
// Iteration stops at the first error.
func (c *Categories) Each(fn func(index int, label string, ids []uint64) error) error {
	for i, label := range c.order {
		if err := fn(i+1, label, c.ids[label]); err != nil {
			return err
		}
	}
	return nil
}

// JobDictionary assigns dense 1-based codes to job category labels in
// first-seen order.
type JobDictionary struct {
	codes  map[string]int
	labels []string
}

// Code returns label's code, allocating the next one on first sight.
func (j *JobDictionary) Code(label string) int {
	if c, ok := j.codes[label]; ok {
		return c
	}
	if j.codes == nil {
		j.codes = make(map[string]int)
	}
	j.labels = append(j.labels, label)
	c := len(j.labels)
	j.codes[label] = c
	return c
}

// Len returns the number of codes allocated so far.
func (j *JobDictionary) Len() int { return len(j.labels) }

// Labels returns labels in code order: Labels()[i] has code i+1.
func (j *JobDictionary) Labels() []string { return j.labels }

// PairSet is a deduplicated set of (person, film) pairs, each packed into one
// uint64 key. Identifiers are at most 32 bits wide (see ident.ToInt).
type PairSet struct {
	m map[uint64]struct{}
}

func pack(person, film uint64) uint64 { return person<<32 | film&math.MaxUint32 }

// Add inserts the pair and reports whether it was new.
func (p *PairSet) Add(person, film uint64) bool {
	if p.m == nil {
		p.m = make(map[uint64]struct{})
	}
	k := pack(person, film)
	if _, ok := p.m[k]; ok {
		return false
	}
	p.m[k] = struct{}{}
	return true
}

// Has reports whether the pair is in the set.
func (p *PairSet) Has(person, film uint64) bool {
	_, ok := p.m[pack(person, film)]
	return ok
}

// Len returns the number of distinct pairs.
func (p *PairSet) Len() int { return len(p.m) }

// Each calls fn once per pair in unspecified order, stopping at the first
// error.
func (p *PairSet) Each(fn func(person, film uint64) error) error {
	for k := range p.m {
		if err := fn(k>>32, k&math.MaxUint32); err != nil {
			return err
		}
	}
	return nil
}
