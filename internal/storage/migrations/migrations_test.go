package migrations

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	in := `-- header
CREATE TABLE a (x Int64);

-- second
CREATE TABLE b (
    y String
) ENGINE = MergeTree() ORDER BY y;
`
	got := splitStatements(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (x Int64)" {
		t.Errorf("first statement %q", got[0])
	}
	if !strings.HasPrefix(got[1], "CREATE TABLE b (") || !strings.HasSuffix(got[1], "ORDER BY y") {
		t.Errorf("second statement %q", got[1])
	}
	if len(splitStatements("-- only a comment\n\n")) != 0 {
		t.Error("comment-only input must yield nothing")
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	ok := []string{
		"SELECT 1;",
		"SELECT 'a'; SELECT 'b';",
		"SELECT 'it''s';",
	}
	for _, sql := range ok {
		if err := validateNoSemicolonInStrings(sql); err != nil {
			t.Errorf("%q: unexpected error %v", sql, err)
		}
	}

	bad := []string{
		"SELECT 'a;b';",
		"SELECT 'it''s;';",
	}
	for _, sql := range bad {
		if err := validateNoSemicolonInStrings(sql); !errors.Is(err, ErrSemicolonInString) {
			t.Errorf("%q: expected ErrSemicolonInString, got %v", sql, err)
		}
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/taxi")
	if err != nil || db != "taxi" {
		t.Errorf("got %q, %v", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for dsn without database")
	}
}

func TestEmbeddedMigrationsAreSplittable(t *testing.T) {
	for _, fsys := range []struct {
		name string
		fs   fs.FS
	}{{"postgres", PostgresFS}, {"clickhouse", ClickhouseFS}} {
		files, err := sqlFiles(fsys.fs, fsys.name)
		if err != nil {
			t.Fatalf("%s: %v", fsys.name, err)
		}
		if len(files) == 0 {
			t.Fatalf("%s: no migrations embedded", fsys.name)
		}
		for _, f := range files {
			data, err := fs.ReadFile(fsys.fs, fsys.name+"/"+f)
			if err != nil {
				t.Fatal(err)
			}
			if err := validateNoSemicolonInStrings(string(data)); err != nil {
				t.Errorf("%s/%s: %v", fsys.name, f, err)
			}
			if len(splitStatements(string(data))) == 0 {
				t.Errorf("%s/%s: no statements", fsys.name, f)
			}
		}
	}
}
