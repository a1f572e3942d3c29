package output

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"imdbnorm/internal/normalize"
	"imdbnorm/internal/schema"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestWriter_SanitizesAndCounts(t *testing.T) {
	t.Parallel()

	l := Layout{Dir: filepath.Join(t.TempDir(), "out"), Ext: "tsv", Delim: "\t"}
	n, err := WriteRows(l, schema.Film, [][]string{
		{"1", "Tab\there", "0", "", "90"},
		{"2", "Two\r\nlines", "1", "1999", ""},
	})
	if err != nil {
		t.Fatalf("WriteRows: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	want := "1\tTab here\t0\t\t90\n2\tTwo lines\t1\t1999\t\n"
	if got := readFile(t, l.Path(schema.Film)); got != want {
		t.Fatalf("file =\n%q\nwant\n%q", got, want)
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, delim, want string }{
		{"plain", "\t", "plain"},
		{"a\tb", "\t", "a b"},
		{"a,b", ",", "a b"},
		{"a\rb\nc", "\t", "a b c"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in, tt.delim); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteCategories_IndexesLineUp(t *testing.T) {
	t.Parallel()

	var c normalize.Categories
	c.Add("Drama", 123)
	c.Add("Comedy", 123)
	c.Add("Drama", 7)

	l := Layout{Dir: t.TempDir(), Ext: "tsv", Delim: "\t"}
	labels, pairs, err := WriteCategories(l, schema.Genre, schema.GenreFilm, &c)
	if err != nil {
		t.Fatalf("WriteCategories: %v", err)
	}
	if labels != 2 || pairs != 3 {
		t.Fatalf("labels=%d pairs=%d", labels, pairs)
	}
	if got := readFile(t, l.Path(schema.Genre)); got != "1\tDrama\n2\tComedy\n" {
		t.Fatalf("genre = %q", got)
	}
	if got := readFile(t, l.Path(schema.GenreFilm)); got != "1\t123\n1\t7\n2\t123\n" {
		t.Fatalf("genre_film = %q", got)
	}
}

func TestWriteJobsAndPairs(t *testing.T) {
	t.Parallel()

	var j normalize.JobDictionary
	j.Code("actor")
	j.Code("self")
	var p normalize.PairSet
	p.Add(1, 10)
	p.Add(2, 10)
	p.Add(1, 10)

	l := Layout{Dir: t.TempDir(), Ext: "tsv", Delim: "\t"}
	if _, err := WriteJobs(l, &j); err != nil {
		t.Fatalf("WriteJobs: %v", err)
	}
	if got := readFile(t, l.Path(schema.Job)); got != "1\tactor\n2\tself\n" {
		t.Fatalf("job = %q", got)
	}
	n, err := WritePairs(l, schema.PersonFilm, &p)
	if err != nil || n != 2 {
		t.Fatalf("WritePairs = %d, %v", n, err)
	}
	lines := strings.Split(strings.TrimSpace(readFile(t, l.Path(schema.PersonFilm))), "\n")
	sort.Strings(lines)
	if strings.Join(lines, ",") != "1\t10,2\t10" {
		t.Fatalf("person_film = %q", lines)
	}
}

func TestLayout_ChunkNames(t *testing.T) {
	t.Parallel()

	l := Layout{Ext: "tsv"}
	tests := []struct {
		i, n int
		want string
	}{
		{0, 1, "film_00.tsv"},
		{3, 8, "film_03.tsv"},
		{11, 12, "film_11.tsv"},
		{5, 128, "film_005.tsv"},
	}
	for _, tt := range tests {
		if got := l.ChunkName("film", tt.i, tt.n); got != tt.want {
			t.Errorf("ChunkName(%d,%d) = %q, want %q", tt.i, tt.n, got, tt.want)
		}
	}
}

// TestReadIDs_FileOrChunks checks that readers find a table in its unsplit
// file, in chunk files (numeric order), or report fs.ErrNotExist.
func TestReadIDs_FileOrChunks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := Layout{Dir: t.TempDir(), Ext: "tsv", Delim: "\t"}

	if err := l.ReadIDs(ctx, schema.Film, func(uint64) {}); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing table err = %v, want fs.ErrNotExist", err)
	}

	if err := os.MkdirAll(l.ChunkDir(schema.Film), 0o755); err != nil {
		t.Fatal(err)
	}
	chunks := map[string]string{
		"film_10.tsv":   "30\tc\t0\t\t\n",
		"film_02.tsv":   "20\tb\t0\t\t\n",
		"film_01.tsv":   "10\ta\t0\t\t\n11\ta\t0\t\t\n",
		"manifest.json": "{}",
	}
	for name, body := range chunks {
		if err := os.WriteFile(filepath.Join(l.ChunkDir(schema.Film), name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var ids []uint64
	if err := l.ReadIDs(ctx, schema.Film, func(id uint64) { ids = append(ids, id) }); err != nil {
		t.Fatalf("ReadIDs chunks: %v", err)
	}
	if len(ids) != 4 || ids[0] != 10 || ids[2] != 20 || ids[3] != 30 {
		t.Fatalf("ids = %v", ids)
	}

	// The unsplit file wins over chunks.
	if _, err := WriteRows(l, schema.Film, [][]string{{"99", "z", "0", "", ""}}); err != nil {
		t.Fatal(err)
	}
	ids = nil
	if err := l.ReadIDs(ctx, schema.Film, func(id uint64) { ids = append(ids, id) }); err != nil {
		t.Fatalf("ReadIDs file: %v", err)
	}
	if len(ids) != 1 || ids[0] != 99 {
		t.Fatalf("ids = %v, want [99]", ids)
	}
}

func TestReadPairs(t *testing.T) {
	t.Parallel()

	l := Layout{Dir: t.TempDir(), Ext: "csv", Delim: ","}
	if _, err := WriteRows(l, schema.PersonFilm, [][]string{{"1", "2"}, {"3", "4"}}); err != nil {
		t.Fatal(err)
	}
	var got [][2]uint64
	err := l.ReadPairs(context.Background(), schema.PersonFilm, func(a, b uint64) {
		got = append(got, [2]uint64{a, b})
	})
	if err != nil {
		t.Fatalf("ReadPairs: %v", err)
	}
	if len(got) != 2 || got[1] != [2]uint64{3, 4} {
		t.Fatalf("pairs = %v", got)
	}

	if err := os.WriteFile(l.Path(schema.PersonFilm), []byte("1,x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := l.ReadPairs(context.Background(), schema.PersonFilm, func(uint64, uint64) {}); err == nil {
		t.Fatalf("expected parse error")
	}
}
