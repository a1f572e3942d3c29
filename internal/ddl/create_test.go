package ddl

import (
	"strings"
	"testing"
)

func TestBuildCreateTableSQL_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		errContains string
	}{
		{"empty FQN", TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}}, "table FQN must not be empty"},
		{"no columns", TableDef{FQN: "film"}, "at least one column is required"},
		{"empty column name", TableDef{FQN: "film", Columns: []ColumnDef{{SQLType: "INT"}}}, "column with empty name"},
		{"empty column type", TableDef{FQN: "film", Columns: []ColumnDef{{Name: "id"}}}, "missing SQLType"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := BuildCreateTableSQL(tt.def, Dialect{Name: "sqlite"})
			if err == nil {
				t.Fatalf("BuildCreateTableSQL() error = nil, want non-nil")
			}
			if !strings.Contains(err.Error(), tt.errContains) || !strings.HasPrefix(err.Error(), "sqlite ddl:") {
				t.Fatalf("error = %q, want prefix %q and substring %q", err, "sqlite ddl:", tt.errContains)
			}
		})
	}
}

func TestBuildCreateTableSQL_Dialects(t *testing.T) {
	t.Parallel()

	def := TableDef{
		FQN: " imdb.genre_film ",
		Columns: []ColumnDef{
			{Name: "genre_id", SQLType: "BIGINT", PrimaryKey: true},
			{Name: "film_id", SQLType: "BIGINT", PrimaryKey: true},
			{Name: "note", SQLType: "TEXT", Nullable: true, Default: " '' "},
		},
	}

	tests := []struct {
		name string
		d    Dialect
		want string
	}{
		{
			name: "plain",
			d:    Dialect{},
			want: "CREATE TABLE imdb.genre_film (\n  genre_id BIGINT NOT NULL,\n  film_id BIGINT NOT NULL,\n  note TEXT DEFAULT '',\n  PRIMARY KEY (genre_id, film_id)\n);",
		},
		{
			name: "double quote if not exists",
			d:    Dialect{Quote: DoubleQuote, IfNotExists: true},
			want: "CREATE TABLE IF NOT EXISTS \"imdb\".\"genre_film\" (\n  \"genre_id\" BIGINT NOT NULL,\n  \"film_id\" BIGINT NOT NULL,\n  \"note\" TEXT DEFAULT '',\n  PRIMARY KEY (\"genre_id\", \"film_id\")\n);",
		},
		{
			name: "bracket with guard",
			d: Dialect{Quote: Bracket, Guard: func(q, create string) string {
				return "IF OBJECT_ID(N'" + q + "', N'U') IS NULL\n" + create
			}},
			want: "IF OBJECT_ID(N'[imdb].[genre_film]', N'U') IS NULL\nCREATE TABLE [imdb].[genre_film] (\n  [genre_id] BIGINT NOT NULL,\n  [film_id] BIGINT NOT NULL,\n  [note] TEXT DEFAULT '',\n  PRIMARY KEY ([genre_id], [film_id])\n);",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(def, tt.d)
			if err != nil {
				t.Fatalf("BuildCreateTableSQL() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestQuoting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		quote func(string) string
		in    string
		want  string
	}{
		{"double", DoubleQuote, `we"ird`, `"we""ird"`},
		{"backtick", Backtick, "we`ird", "`we``ird`"},
		{"bracket", Bracket, "we]ird", "[we]]ird]"},
	}
	for _, tt := range tests {
		if got := tt.quote(tt.in); got != tt.want {
			t.Errorf("%s(%q) = %q, want %q", tt.name, tt.in, got, tt.want)
		}
	}

	if got := QuoteFQN("a..b", DoubleQuote); got != `"a"."b"` {
		t.Fatalf("QuoteFQN = %q", got)
	}
	if got := QuoteFQN("a.b", nil); got != "a.b" {
		t.Fatalf("QuoteFQN(nil) = %q", got)
	}
}

var benchmarkSink string

func BenchmarkBuildCreateTableSQL(b *testing.B) {
	def := TableDef{
		FQN: "principal",
		Columns: []ColumnDef{
			{Name: "id", SQLType: "BIGINT", PrimaryKey: true},
			{Name: "film_id", SQLType: "BIGINT"},
			{Name: "person_id", SQLType: "BIGINT"},
			{Name: "job_id", SQLType: "BIGINT"},
			{Name: "job", SQLType: "TEXT", Nullable: true},
			{Name: "characters", SQLType: "TEXT", Nullable: true},
		},
	}
	d := Dialect{Quote: DoubleQuote, IfNotExists: true}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sql, err := BuildCreateTableSQL(def, d)
		if err != nil {
			b.Fatalf("BuildCreateTableSQL() error = %v", err)
		}
		benchmarkSink = sql
	}
}
