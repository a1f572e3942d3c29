package split

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imdbnorm/internal/output"
)

func writeTable(t *testing.T, l output.Layout, table, body string) {
	t.Helper()
	if err := os.WriteFile(l.Path(table), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", table, err)
	}
}

func lines(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "%d\tname %d\n", i, i)
	}
	return sb.String()
}

func concatChunks(t *testing.T, l output.Layout, table string) string {
	t.Helper()
	files, err := l.Chunks(table)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	var sb strings.Builder
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read chunk: %v", err)
		}
		sb.Write(b)
	}
	return sb.String()
}

// TestSplitTable_ConcatenationReproducesInput checks the core property for
// several line counts and parallelism values.
func TestSplitTable_ConcatenationReproducesInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		p          int
		wantChunks int
	}{
		{"even", lines(8), 4, 4},
		{"uneven", lines(10), 4, 4},
		{"fewer lines than workers", lines(3), 8, 3},
		{"single worker", lines(5), 1, 1},
		{"no trailing newline", "1\ta\n2\tb\n3\tc", 2, 2},
		{"many chunks", lines(120), 12, 12},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := output.Layout{Dir: t.TempDir(), Ext: "tsv", Delim: "\t"}
			writeTable(t, l, "film", tt.body)

			s := &Splitter{Layout: l, Parallelism: tt.p}
			res := s.SplitTable(context.Background(), "film")
			if res.Err != nil {
				t.Fatalf("SplitTable: %v", res.Err)
			}
			if res.Chunks != tt.wantChunks || res.Chunks > tt.p {
				t.Fatalf("chunks = %d, want %d (<= %d)", res.Chunks, tt.wantChunks, tt.p)
			}
			if got := concatChunks(t, l, "film"); got != tt.body {
				t.Fatalf("concatenation differs:\n%q\nwant\n%q", got, tt.body)
			}
			if _, err := os.Stat(l.Path("film")); !os.IsNotExist(err) {
				t.Fatalf("original file should be removed, stat err = %v", err)
			}

			m, err := ReadManifest(l, "film")
			if err != nil {
				t.Fatalf("ReadManifest: %v", err)
			}
			var sum int64
			for _, c := range m.Chunks {
				sum += c.Lines
			}
			if sum != m.Lines || m.Lines != res.Lines {
				t.Fatalf("manifest lines = %d (sum %d), result %d", m.Lines, sum, res.Lines)
			}
			if err := Verify(l, "film"); err != nil {
				t.Fatalf("Verify: %v", err)
			}
		})
	}
}

func TestSplitTable_EmptyAndMissing(t *testing.T) {
	t.Parallel()

	l := output.Layout{Dir: t.TempDir(), Ext: "tsv", Delim: "\t"}
	writeTable(t, l, "job", "")

	s := &Splitter{Layout: l, Parallelism: 4}
	res := s.SplitTable(context.Background(), "job")
	if res.Err != nil || res.Chunks != 0 || res.Skipped {
		t.Fatalf("empty table result = %+v", res)
	}
	files, err := l.Files("job")
	if err != nil || len(files) != 0 {
		t.Fatalf("Files(empty split) = %v, %v", files, err)
	}

	// Second run: the unsplit file is gone, the stage is skipped.
	res = s.SplitTable(context.Background(), "job")
	if !res.Skipped || res.Err != nil {
		t.Fatalf("rerun result = %+v, want skipped", res)
	}
}

func TestSplitTable_ReplacesStaleChunks(t *testing.T) {
	t.Parallel()

	l := output.Layout{Dir: t.TempDir(), Ext: "tsv", Delim: "\t"}
	s := &Splitter{Layout: l, Parallelism: 4}

	writeTable(t, l, "rating", lines(40))
	if res := s.SplitTable(context.Background(), "rating"); res.Err != nil {
		t.Fatalf("first split: %v", res.Err)
	}
	writeTable(t, l, "rating", lines(2))
	if res := s.SplitTable(context.Background(), "rating"); res.Err != nil || res.Chunks != 2 {
		t.Fatalf("second split = %+v", res)
	}
	if got := concatChunks(t, l, "rating"); got != lines(2) {
		t.Fatalf("stale chunks survived: %q", got)
	}
}

func TestSplit_IndependentFailures(t *testing.T) {
	t.Parallel()

	l := output.Layout{Dir: t.TempDir(), Ext: "tsv", Delim: "\t"}
	writeTable(t, l, "film", lines(6))
	// A directory in place of the person file makes reading it fail.
	if err := os.Mkdir(l.Path("person"), 0o755); err != nil {
		t.Fatal(err)
	}

	s := &Splitter{Layout: l, Parallelism: 2}
	results, err := s.Split(context.Background(), []string{"film", "person", "principal"})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if !strings.Contains(err.Error(), "split person") {
		t.Fatalf("err = %v", err)
	}
	if results[0].Err != nil || results[0].Chunks != 2 {
		t.Fatalf("film result = %+v", results[0])
	}
	if !results[2].Skipped {
		t.Fatalf("principal should be skipped: %+v", results[2])
	}
	if _, statErr := os.Stat(l.Path("person")); statErr != nil {
		t.Fatalf("failed table must keep its original: %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Join(l.Dir, "person.partial")); !os.IsNotExist(statErr) {
		t.Fatalf("partial dir should be cleaned up")
	}
}

func TestChunkSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total int64
		p     int
		want  int64
	}{
		{10, 4, 3},
		{8, 4, 2},
		{0, 4, 1},
		{5, 0, 5},
		{1, 16, 1},
	}
	for _, tt := range tests {
		if got := ChunkSize(tt.total, tt.p); got != tt.want {
			t.Errorf("ChunkSize(%d,%d) = %d, want %d", tt.total, tt.p, got, tt.want)
		}
	}
}

func TestCountLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := map[string]int64{"": 0, "a": 1, "a\n": 1, "a\nb": 2, "\n\n": 2}
	i := 0
	for body, want := range tests {
		p := filepath.Join(dir, fmt.Sprintf("f%d", i))
		i++
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := CountLines(p)
		if err != nil || got != want {
			t.Errorf("CountLines(%q) = %d, %v, want %d", body, got, err, want)
		}
	}
}
