package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imdbnorm/internal/config"
	"imdbnorm/internal/output"
	"imdbnorm/internal/schema"
	"imdbnorm/internal/split"
)

var dumps = map[string][]string{
	"title.basics.tsv": {
		"tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\tgenres",
		"tt0000001\tmovie\tA\tA\t0\t2000\t\\N\t90\tDrama,Comedy",
		"tt0000002\tshort\tB\tB\t0\t2001\t\\N\t5\tDrama",
		"tt0000003\tmovie\tC\tC\t1\t\\N\t\\N\t\\N\tDrama",
	},
	"name.basics.tsv": {
		"nconst\tprimaryName\tbirthYear\tdeathYear\tprimaryProfession\tknownForTitles",
		"nm0000001\tAnn\t1950\t\\N\tactor,producer\ttt0000001,tt0000002",
		"nm0000002\tBob\t\\N\t\\N\tdirector\ttt0000003",
	},
	"title.principals.tsv": {
		"tconst\tordering\tnconst\tcategory\tjob\tcharacters",
		"tt0000001\t1\tnm0000001\tactor\t\\N\t[\"Ann\"]",
		"tt0000003\t1\tnm0000002\tdirector\t\\N\t\\N",
		"tt0000003\t2\tnm0000001\tactor\t\\N\t\\N",
	},
	"title.ratings.tsv": {
		"tconst\taverageRating\tnumVotes",
		"tt0000001\t7.5\t100",
		"tt0000003\t\\N\t\\N",
	},
}

// setupRun writes the dumps and a config into a temp dir and returns the
// config path and the output directory.
func setupRun(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	for name, lines := range dumps {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	out := filepath.Join(dir, "out")
	cfg := "job: test\n" +
		"input_dir: " + dir + "\n" +
		"output_dir: " + out + "\n" +
		"film_filter: [movie]\n" +
		"parallelism: 2\n" +
		extra
	path := filepath.Join(dir, "imdbnorm.yml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path, out
}

// execute runs the command tree with args. Not safe for parallel tests: the
// commands redirect the global logger.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		extra     string
		wantErr   bool
		wantIssue string
	}{
		{"valid", "", false, ""},
		{"unknown metrics backend", "metrics:\n  backend: carrier-pigeon\n", true, "error: metrics.backend:"},
		{"warning only", "storage:\n  kind: sqlite\n  workers: 4\n", false, "warning: storage.workers:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, _ := setupRun(t, tt.extra)
			stdout, _, err := execute(t, "validate", "--config", path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %t", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, config.ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
			if tt.wantIssue != "" && !strings.Contains(stdout, tt.wantIssue) {
				t.Fatalf("stdout = %q, want %q", stdout, tt.wantIssue)
			}
		})
	}
}

func TestInvalidConfigBlocksParse(t *testing.T) {
	path, out := setupRun(t, "metrics:\n  backend: carrier-pigeon\n")
	_, stderr, err := execute(t, "parse", "--config", path)
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if !strings.Contains(stderr, "metrics.backend") {
		t.Fatalf("stderr = %q, want the issue", stderr)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output dir exists after a blocked run: %v", err)
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, _, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatalf("expected error for a missing config file")
	}
}

func TestParseSplitLoad(t *testing.T) {
	path, out := setupRun(t, "")
	stdout, _, err := execute(t, "parse", "--config", path, "--quiet")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(stdout, "film\tread=3 accepted=2 dropped=1 malformed=0") {
		t.Fatalf("parse stdout = %q", stdout)
	}

	l := output.Layout{Dir: out, Ext: "tsv", Delim: "\t"}
	if err := split.Verify(l, schema.Film); err != nil {
		t.Fatalf("film chunks: %v", err)
	}

	stdout, _, err = execute(t, "load", "--config", path, "--batch-size", "2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.Contains(stdout, "person_film\tfiles=") {
		t.Fatalf("load stdout = %q", stdout)
	}

	db, err := sql.Open("sqlite", "file:"+filepath.Join(out, "imdb.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	want := map[string]int{
		schema.Film:       2,
		schema.Person:     2,
		schema.Principal:  3,
		schema.Rating:     2,
		schema.Genre:      2,
		schema.GenreFilm:  3,
		schema.Job:        2,
		schema.PersonFilm: 3,
	}
	for table, n := range want {
		var got int
		if err := db.QueryRow(`SELECT COUNT(*) FROM "` + table + `"`).Scan(&got); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if got != n {
			t.Errorf("%s rows = %d, want %d", table, got, n)
		}
	}
}

func TestParseNoSplitThenSplit(t *testing.T) {
	path, out := setupRun(t, "")
	if _, _, err := execute(t, "parse", "--config", path, "--quiet", "--no-split"); err != nil {
		t.Fatalf("parse: %v", err)
	}
	l := output.Layout{Dir: out, Ext: "tsv", Delim: "\t"}
	if _, err := os.Stat(l.Path(schema.Film)); err != nil {
		t.Fatalf("unsplit film: %v", err)
	}

	stdout, _, err := execute(t, "split", "--config", path, schema.Film, schema.Genre)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if !strings.Contains(stdout, "film\tlines=2 chunks=2") {
		t.Fatalf("split stdout = %q", stdout)
	}
	if _, err := os.Stat(l.Path(schema.Film)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unsplit film still present: %v", err)
	}
	// Person was not named and keeps its unsplit file.
	if _, err := os.Stat(l.Path(schema.Person)); err != nil {
		t.Fatalf("unsplit person: %v", err)
	}

	if _, _, err := execute(t, "split", "--config", path, "nope"); err == nil {
		t.Fatalf("expected error for an unknown table")
	}
}

func TestParseBadResume(t *testing.T) {
	path, _ := setupRun(t, "")
	_, _, err := execute(t, "parse", "--config", path, "--resume", "film")
	if err == nil || !strings.Contains(err.Error(), "parse failed") {
		t.Fatalf("err = %v, want a parse failure", err)
	}
}
