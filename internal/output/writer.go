package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// Writer appends delimited rows to one table file. It is not safe for
// concurrent use; every table gets its own Writer.
type Writer struct {
	path  string
	f     *os.File
	w     *bufio.Writer
	delim string
	rows  int64
}

// Create truncates (or creates) the file of table in l.
func Create(l Layout, table string) (*Writer, error) {
	return CreatePath(l.Path(table), l.Delim)
}

// CreatePath truncates (or creates) path, creating parent directories.
func CreatePath(path, delim string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output %s: %w", path, err)
	}
	return &Writer{path: path, f: f, w: bufio.NewWriterSize(f, 1<<20), delim: delim}, nil
}

// Write appends one row. Fields are sanitized so a row is always one line.
func (w *Writer) Write(row []string) error {
	for i, v := range row {
		if i > 0 {
			if _, err := w.w.WriteString(w.delim); err != nil {
				return w.fail(err)
			}
		}
		if _, err := w.w.WriteString(Sanitize(v, w.delim)); err != nil {
			return w.fail(err)
		}
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return w.fail(err)
	}
	w.rows++
	return nil
}

func (w *Writer) fail(err error) error { return fmt.Errorf("write %s: %w", w.path, err) }

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int64 { return w.rows }

// Path returns the file being written.
func (w *Writer) Path() string { return w.path }

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	ferr := w.w.Flush()
	cerr := w.f.Close()
	if ferr != nil {
		return w.fail(ferr)
	}
	if cerr != nil {
		return fmt.Errorf("close %s: %w", w.path, cerr)
	}
	return nil
}
