// Package tsv provides streaming decoding of the delimited dump files.
//
// A Decoder reads one file line by line without whole-file buffering, zips
// every line against the header line, and reports how far through the file
// it is as a byte fraction (0–100). Decoding never fails on a malformed line:
// short lines are padded (see Record) and it is the caller's job to decide
// whether a record is usable.
//
// Fields are split on the raw delimiter with no quote processing. The dumps
// are not quoted: a title such as `"Weekend" at Bernie's` carries literal
// quotes, which encoding/csv would misread even with LazyQuotes.
package tsv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"imdbnorm/internal/datasource"
)

// DefaultDelimiter is the field separator of the dumps.
const DefaultDelimiter = "\t"

// cancelCheckEvery bounds how many lines are decoded between context checks.
const cancelCheckEvery = 4096

// Decoder yields (Record, progress) steps from one delimited file. It is not
// safe for concurrent use and cannot be rewound; reopen the file to restart.
//
//	d, err := tsv.Open(ctx, file.NewLocal(path), "\t")
//	if err != nil { ... }
//	defer d.Close()
//	for d.Next() {
//	    rec, pct := d.Record(), d.Progress()
//	    ...
//	}
//	if err := d.Err(); err != nil { ... }
type Decoder struct {
	ctx    context.Context
	closer io.Closer
	r      *bufio.Reader
	delim  string
	header *Header

	size int64
	read int64
	line int

	rec  Record
	err  error
	done bool
}

// Open opens src, reads its header line and returns a Decoder positioned at
// the first data line. A missing file, an unreadable file, or a file without
// a header line is an error: the caller cannot process that table at all.
func Open(ctx context.Context, src datasource.Source, delim string) (*Decoder, error) {
	size, err := src.Size()
	if err != nil {
		return nil, err
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	if f, ok := rc.(*os.File); ok {
		adviseSequential(f)
	}

	d, err := NewDecoder(ctx, rc, size, delim)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("%s: %w", src.Name(), err)
	}
	d.closer = rc
	return d, nil
}

// NewDecoder wraps r, whose total length is size bytes, and consumes the
// header line. A leading UTF-8 byte order mark is dropped.
func NewDecoder(ctx context.Context, r io.Reader, size int64, delim string) (*Decoder, error) {
	if delim == "" {
		delim = DefaultDelimiter
	}
	br := bufio.NewReaderSize(transform.NewReader(r, unicode.BOMOverride(transform.Nop)), 1<<20)
	d := &Decoder{ctx: ctx, r: br, delim: delim, size: size}

	raw, err := d.readLine()
	if err != nil && !(errors.Is(err, io.EOF) && raw != "") {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := strings.Split(trimEOL(raw), delim)
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	d.header = newHeader(names)
	if errors.Is(err, io.EOF) {
		d.finish()
	}
	return d, nil
}

// readLine returns the next physical line including its terminator and
// accounts its bytes towards progress.
func (d *Decoder) readLine() (string, error) {
	s, err := d.r.ReadString('\n')
	d.read += int64(len(s))
	d.line++
	return s, err
}

func (d *Decoder) finish() {
	d.done = true
	d.read = d.size
}

// Next advances to the next data line. It returns false at end of file or on
// a read error; check Err afterwards.
func (d *Decoder) Next() bool {
	if d.done || d.err != nil {
		return false
	}
	if d.line%cancelCheckEvery == 0 {
		if err := d.ctx.Err(); err != nil {
			d.err = err
			return false
		}
	}

	raw, err := d.readLine()
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		d.finish()
		if raw == "" {
			return false
		}
	default:
		d.err = fmt.Errorf("read line %d: %w", d.line, err)
		return false
	}

	d.rec = d.split(trimEOL(raw))
	return true
}

// split zips one line against the header, padding short lines.
func (d *Decoder) split(line string) Record {
	n := len(d.header.names)
	values := make([]string, n)
	present := 0
	for present < n {
		i := strings.Index(line, d.delim)
		if i < 0 || present == n-1 {
			// The last column keeps the rest of the line.
			values[present] = line
			present++
			break
		}
		values[present] = line[:i]
		present++
		line = line[i+len(d.delim):]
	}
	return Record{header: d.header, values: values, present: present, Line: d.line}
}

// Record returns the record decoded by the last successful Next.
func (d *Decoder) Record() Record { return d.rec }

// Progress returns the percentage (0–100) of the file's bytes consumed so far,
// header and line terminators included.
func (d *Decoder) Progress() float64 {
	if d.size <= 0 {
		return 100
	}
	p := float64(d.read) / float64(d.size) * 100
	if p > 100 {
		return 100
	}
	return p
}

// Header returns the column layout read from the first line.
func (d *Decoder) Header() *Header { return d.header }

// Err returns the first non-EOF error encountered by Next.
func (d *Decoder) Err() error { return d.err }

// Close releases the underlying file, if the Decoder opened one.
func (d *Decoder) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
