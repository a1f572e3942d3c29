package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrMalformed marks a record that could not be normalized because a field
// was missing or an identifier could not be compressed.
var ErrMalformed = errors.New("malformed record")

// RecordError describes one rejected raw record.
type RecordError struct {
	Table  string
	Line   int
	Reason string
	Record map[string]string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s line %d: %s", e.Table, e.Line, e.Reason)
}

func (e *RecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformed}
	}
	return []error{ErrMalformed, e.Err}
}

// Entry is the persisted form of a RecordError.
type Entry struct {
	Line   int               `json:"line"`
	Reason string            `json:"reason"`
	Record map[string]string `json:"record"`
}

// ErrorLog collects rejected records per table for the whole run. Counts are
// always exact; raw records beyond the per-table limit are not retained.
type ErrorLog struct {
	limit   int
	entries map[string][]Entry
	counts  map[string]int
}

// NewErrorLog returns an empty log keeping at most limit records per table
// (0 means no limit).
func NewErrorLog(limit int) *ErrorLog {
	return &ErrorLog{
		limit:   limit,
		entries: make(map[string][]Entry),
		counts:  make(map[string]int),
	}
}

// Add records e under its table.
func (l *ErrorLog) Add(e *RecordError) {
	l.counts[e.Table]++
	if l.limit > 0 && len(l.entries[e.Table]) >= l.limit {
		return
	}
	l.entries[e.Table] = append(l.entries[e.Table], Entry{Line: e.Line, Reason: e.Reason, Record: e.Record})
}

// Count returns how many records of table were rejected.
func (l *ErrorLog) Count(table string) int { return l.counts[table] }

// Total returns the number of rejected records over all tables.
func (l *ErrorLog) Total() int {
	n := 0
	for _, c := range l.counts {
		n += c
	}
	return n
}

// Tables returns the tables with at least one rejected record, sorted.
func (l *ErrorLog) Tables() []string {
	out := make([]string, 0, len(l.counts))
	for t := range l.counts {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Entries returns the retained records of table.
func (l *ErrorLog) Entries(table string) []Entry { return l.entries[table] }

// MarshalJSON renders the log as {"table": [entries...]}.
func (l *ErrorLog) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.entries)
}

// Save writes the log as indented JSON to path, replacing any previous file.
func (l *ErrorLog) Save(path string) error {
	b, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode error log: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write error log %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write error log %s: %w", path, err)
	}
	return nil
}
