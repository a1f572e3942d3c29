// Package split partitions normalized table files into near-equal chunk
// files so a bulk loader can ingest each table with several concurrent
// readers. Splitting is purely physical: concatenating the chunks of a table
// in index order reproduces the original file byte for byte.
package split

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"imdbnorm/internal/output"
)

// ManifestName is the file written next to the chunks of each table.
const ManifestName = "manifest.json"

// Chunk describes one chunk file.
type Chunk struct {
	Name  string `json:"name"`
	Lines int64  `json:"lines"`
	XXH3  string `json:"xxh3"`
}

// Manifest lists the chunks of one table in order.
type Manifest struct {
	Table  string  `json:"table"`
	Lines  int64   `json:"lines"`
	Chunks []Chunk `json:"chunks"`
}

// Result is the outcome of splitting one table.
type Result struct {
	Table    string
	Lines    int64
	Chunks   int
	Skipped  bool // no unsplit file (already split or never written)
	Duration time.Duration
	Err      error
}

// Splitter splits the tables of one output layout.
type Splitter struct {
	Layout output.Layout

	// Parallelism bounds both the number of tables split at once and the
	// number of chunks per table. Zero means runtime.NumCPU().
	Parallelism int

	// Verbose logs one line per table.
	Verbose bool
}

func (s *Splitter) parallelism() int {
	if s.Parallelism > 0 {
		return s.Parallelism
	}
	return runtime.NumCPU()
}

// Split splits every table concurrently, one worker per table. A failure on
// one table does not stop the others; all failures are returned joined, and
// a failed table keeps its unsplit file.
func (s *Splitter) Split(ctx context.Context, tables []string) ([]Result, error) {
	results := make([]Result, len(tables))

	var g errgroup.Group
	g.SetLimit(s.parallelism())
	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			results[i] = s.SplitTable(ctx, table)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}

// SplitTable splits one table. A missing unsplit file is not an error: the
// table is reported as skipped.
func (s *Splitter) SplitTable(ctx context.Context, table string) Result {
	start := time.Now()
	res := Result{Table: table}

	src := s.Layout.Path(table)
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		res.Skipped = true
		return res
	}

	m, err := s.splitFile(ctx, table, src)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("split %s: %w", table, err)
		return res
	}
	res.Lines = m.Lines
	res.Chunks = len(m.Chunks)

	if err := os.Remove(src); err != nil {
		res.Err = fmt.Errorf("split %s: remove original: %w", table, err)
		return res
	}
	if s.Verbose {
		log.Printf("split: table=%s lines=%d chunks=%d dur=%s", table, res.Lines, res.Chunks, res.Duration.Truncate(time.Millisecond))
	}
	return res
}

// splitFile writes the chunks of src into a staging directory and swaps it
// in place of any previous chunk directory once everything is on disk.
func (s *Splitter) splitFile(ctx context.Context, table, src string) (m Manifest, err error) {
	total, err := CountLines(src)
	if err != nil {
		return m, err
	}

	final := s.Layout.ChunkDir(table)
	staging := final + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return m, fmt.Errorf("clear staging dir: %w", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return m, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(staging)
		}
	}()

	m = Manifest{Table: table, Lines: total}
	if total > 0 {
		m.Chunks, err = s.writeChunks(ctx, table, src, staging, total)
		if err != nil {
			return m, err
		}
	}
	if err := writeManifest(filepath.Join(staging, ManifestName), m); err != nil {
		return m, err
	}

	if err := os.RemoveAll(final); err != nil {
		return m, fmt.Errorf("remove stale chunk dir: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		return m, fmt.Errorf("publish chunk dir: %w", err)
	}
	return m, nil
}

// ChunkSize returns the lines per chunk for total lines over p readers:
// ceil(total/p), at least 1.
func ChunkSize(total int64, p int) int64 {
	if p < 1 {
		p = 1
	}
	n := (total + int64(p) - 1) / int64(p)
	if n < 1 {
		n = 1
	}
	return n
}

func (s *Splitter) writeChunks(ctx context.Context, table, src, dir string, total int64) ([]Chunk, error) {
	per := ChunkSize(total, s.parallelism())
	count := int((total + per - 1) / per)

	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()
	br := bufio.NewReaderSize(f, 1<<20)

	chunks := make([]Chunk, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := s.Layout.ChunkName(table, i, count)
		c, err := copyLines(br, filepath.Join(dir, name), per)
		if err != nil {
			return nil, err
		}
		c.Name = name
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// copyLines copies up to n lines from r into a new file at path.
func copyLines(r *bufio.Reader, path string, n int64) (c Chunk, err error) {
	f, err := os.Create(path)
	if err != nil {
		return c, fmt.Errorf("create chunk: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close chunk %s: %w", path, cerr)
		}
	}()

	h := xxh3.New()
	w := bufio.NewWriterSize(io.MultiWriter(f, h), 1<<20)
	for c.Lines < n {
		line, rerr := r.ReadSlice('\n')
		if len(line) > 0 {
			if _, err := w.Write(line); err != nil {
				return c, fmt.Errorf("write chunk %s: %w", path, err)
			}
			if rerr != bufio.ErrBufferFull {
				c.Lines++
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil && rerr != bufio.ErrBufferFull {
			return c, fmt.Errorf("read: %w", rerr)
		}
	}
	if err := w.Flush(); err != nil {
		return c, fmt.Errorf("write chunk %s: %w", path, err)
	}
	c.XXH3 = strconv.FormatUint(h.Sum64(), 16)
	return c, nil
}

// CountLines counts the lines of path in one streaming pass. A final line
// without a trailing newline still counts.
func CountLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, 1<<20)
	var n int64
	var last byte = '\n'
	for {
		k, err := f.Read(buf)
		if k > 0 {
			n += int64(bytes.Count(buf[:k], []byte{'\n'}))
			last = buf[k-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if last != '\n' {
		n++
	}
	return n, nil
}

func writeManifest(path string, m Manifest) error {
	if m.Chunks == nil {
		m.Chunks = []Chunk{}
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest of a split table.
func ReadManifest(l output.Layout, table string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(filepath.Join(l.ChunkDir(table), ManifestName))
	if err != nil {
		return m, fmt.Errorf("read manifest of %s: %w", table, err)
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode manifest of %s: %w", table, err)
	}
	return m, nil
}

// Verify recomputes the checksum of every chunk listed in table's manifest.
func Verify(l output.Layout, table string) error {
	m, err := ReadManifest(l, table)
	if err != nil {
		return err
	}
	for _, c := range m.Chunks {
		path := filepath.Join(l.ChunkDir(table), c.Name)
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("verify %s: %w", c.Name, err)
		}
		h := xxh3.New()
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("verify %s: %w", c.Name, err)
		}
		if got := strconv.FormatUint(h.Sum64(), 16); got != c.XXH3 {
			return fmt.Errorf("verify %s: checksum %s, manifest says %s", c.Name, got, c.XXH3)
		}
	}
	return nil
}
