package tsv

import (
	"errors"
	"fmt"
)

// ErrMissingField is returned by Record.Field when the requested column is
// not part of the header, or the line was too short to carry it.
var ErrMissingField = errors.New("missing field")

// Header maps column names to positions. It is built once from the first line
// of a file and shared by every Record decoded from that file.
type Header struct {
	names []string
	index map[string]int
}

func newHeader(names []string) *Header {
	h := &Header{names: names, index: make(map[string]int, len(names))}
	for i, n := range names {
		if _, dup := h.index[n]; !dup {
			h.index[n] = i
		}
	}
	return h
}

// Names returns the column names in file order.
func (h *Header) Names() []string { return h.names }

// Has reports whether the header defines column name.
func (h *Header) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// Record is one decoded line zipped against the file header. Lines with fewer
// fields than the header are padded: the missing trailing columns exist but
// report ErrMissingField on access, so the caller decides whether the record
// is usable. Extra trailing fields stay joined in the last column.
type Record struct {
	header  *Header
	values  []string
	present int

	// Line is the 1-based physical line number (the header is line 1).
	Line int
}

// Field returns the value of column name.
func (r Record) Field(name string) (string, error) {
	i, ok := r.header.index[name]
	if !ok {
		return "", fmt.Errorf("%w: %q not in header", ErrMissingField, name)
	}
	if i >= r.present {
		return "", fmt.Errorf("%w: %q (line %d has %d of %d fields)",
			ErrMissingField, name, r.Line, r.present, len(r.header.names))
	}
	return r.values[i], nil
}

// Short reports whether the line had fewer fields than the header.
func (r Record) Short() bool { return r.present < len(r.header.names) }

// Map returns the fields that were actually present on the line, keyed by
// column name. It is used to persist rejected raw records.
func (r Record) Map() map[string]string {
	out := make(map[string]string, r.present)
	for i := 0; i < r.present; i++ {
		out[r.header.names[i]] = r.values[i]
	}
	return out
}
