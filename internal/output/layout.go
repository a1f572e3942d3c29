// Package output writes normalized tables as delimited text files and reads
// them back (for resume and for the loader). A table lives either in one
// unsplit file <dir>/<table>.<ext> or, after splitting, in numbered chunk
// files under <dir>/<table>/.
package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Layout locates normalized output on disk.
type Layout struct {
	Dir   string
	Ext   string // without the dot, e.g. "tsv"
	Delim string
}

// Path is the unsplit file of table.
func (l Layout) Path(table string) string {
	return filepath.Join(l.Dir, table+"."+l.Ext)
}

// ChunkDir is the directory holding table's chunk files.
func (l Layout) ChunkDir(table string) string {
	return filepath.Join(l.Dir, table)
}

// ChunkName is the file name of chunk i (0-based) out of n. Indexes are
// zero-padded to at least two digits so names sort in chunk order.
func (l Layout) ChunkName(table string, i, n int) string {
	width := len(strconv.Itoa(n - 1))
	if width < 2 {
		width = 2
	}
	return fmt.Sprintf("%s_%0*d.%s", table, width, i, l.Ext)
}

// Files returns the files that hold table, preferring the unsplit file over
// chunks. The error wraps fs.ErrNotExist when neither exists.
func (l Layout) Files(table string) ([]string, error) {
	if fi, err := os.Stat(l.Path(table)); err == nil && fi.Mode().IsRegular() {
		return []string{l.Path(table)}, nil
	}
	chunks, err := l.Chunks(table)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		if _, err := os.Stat(l.ChunkDir(table)); err == nil {
			// Split of an empty table: nothing to read.
			return nil, nil
		}
		return nil, fmt.Errorf("table %s: no output at %s or %s: %w",
			table, l.Path(table), l.ChunkDir(table), fs.ErrNotExist)
	}
	return chunks, nil
}

// Chunks lists table's chunk files in chunk order. A missing chunk directory
// yields no chunks and no error.
func (l Layout) Chunks(table string) ([]string, error) {
	entries, err := os.ReadDir(l.ChunkDir(table))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list chunks of %s: %w", table, err)
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(table) + `_(\d+)\.` + regexp.QuoteMeta(l.Ext) + `$`)
	type chunk struct {
		idx  int
		path string
	}
	var found []chunk
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		found = append(found, chunk{idx, filepath.Join(l.ChunkDir(table), e.Name())})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].idx < found[j].idx })
	out := make([]string, len(found))
	for i, c := range found {
		out[i] = c.path
	}
	return out, nil
}

// Sanitize makes v safe to write as one field: the delimiter and line breaks
// are replaced by a single space.
func Sanitize(v, delim string) string {
	if !strings.ContainsAny(v, "\r\n") && !strings.Contains(v, delim) {
		return v
	}
	v = strings.ReplaceAll(v, delim, " ")
	v = strings.ReplaceAll(v, "\r\n", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.ReplaceAll(v, "\r", " ")
}
