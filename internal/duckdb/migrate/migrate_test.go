package migrate

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"testing/fstest"

	_ "github.com/duckdb/duckdb-go/v2"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunAppliesAllMigrations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	applied, err := NewRunner(db).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"001_perf_stats.sql", "002_perf_stats_indexes.sql"}
	if !reflect.DeepEqual(applied, want) {
		t.Fatalf("applied = %v, want %v", applied, want)
	}

	for _, table := range []string{"perf_stats", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRunner(db)

	if _, err := r.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	applied, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("second Run applied %v, want none", applied)
	}

	cur, pending, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if cur != 2 || pending != 0 {
		t.Errorf("Status = (%d, %d), want (2, 0)", cur, pending)
	}
}

func TestStatusBeforeRun(t *testing.T) {
	db := openTestDB(t)

	cur, pending, err := NewRunner(db).Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if cur != 0 || pending != 2 {
		t.Errorf("Status = (%d, %d), want (0, 2)", cur, pending)
	}
}

func TestRunStopsAtBrokenMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := &Runner{db: db, source: fstest.MapFS{
		"migrations/001_ok.sql":     {Data: []byte("CREATE TABLE ok_table (id INTEGER);")},
		"migrations/002_broken.sql": {Data: []byte("CREATE TABLE;")},
		"migrations/README.md":      {Data: []byte("ignored")},
	}}

	applied, err := r.Run(ctx)
	if err == nil {
		t.Fatal("Run error = nil, want failure on broken migration")
	}
	if !reflect.DeepEqual(applied, []string{"001_ok.sql"}) {
		t.Fatalf("applied = %v, want [001_ok.sql]", applied)
	}
	cur, pending, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if cur != 1 || pending != 1 {
		t.Errorf("Status = (%d, %d), want (1, 1)", cur, pending)
	}
}
