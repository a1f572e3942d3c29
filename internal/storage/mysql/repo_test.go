package mysql

import (
	"context"
	"reflect"
	"testing"

	"imdbnorm/internal/schema"
	"imdbnorm/internal/storage"
)

func TestInsertSQL(t *testing.T) {
	t.Parallel()

	stmt, args, err := insertSQL("imdb.job", []string{"id", "name"}, [][]any{{int64(1), "actor"}, {int64(2), "director"}})
	if err != nil {
		t.Fatalf("insertSQL: %v", err)
	}
	want := "INSERT INTO `imdb`.`job` (`id`,`name`) VALUES (?,?),(?,?)"
	if stmt != want {
		t.Fatalf("stmt = %q, want %q", stmt, want)
	}
	if !reflect.DeepEqual(args, []any{int64(1), "actor", int64(2), "director"}) {
		t.Fatalf("args = %v", args)
	}

	if _, _, err := insertSQL("job", []string{"id", "name"}, [][]any{{int64(1)}}); err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{DSN: "not a dsn"}); err == nil {
		t.Fatalf("expected DSN error")
	}
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := storage.CreateTableSQL("mysql", schema.MustLookup(schema.Job), "")
	if err != nil {
		t.Fatalf("CreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS `job` (\n  `id` BIGINT NOT NULL,\n  `name` TEXT NOT NULL,\n  PRIMARY KEY (`id`)\n);"
	if got != want {
		t.Fatalf("DDL mismatch:\n got: %s\nwant: %s", got, want)
	}
}

// Not parallel: swaps a package-level hook.
func TestAdapterRegistration(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var got Config
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{}, nil, nil
	}
	repo, err := storage.New(context.Background(), storage.Config{Kind: "mysql", DSN: "u:p@tcp(db:3306)/imdb", Table: "job"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if got.DSN != "u:p@tcp(db:3306)/imdb" || got.Table != "job" {
		t.Fatalf("cfg = %+v", got)
	}
	repo.Close()
}
