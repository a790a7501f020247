package migrate

import (
	"context"
	"testing"

	"lifeline/internal/db"
)

func TestMigrateIsRepeatable(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	latest, err := Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	for i := 0; i < 2; i++ {
		v, err := Migrate(ctx, conn)
		if err != nil {
			t.Fatalf("migrate pass %d: %v", i, err)
		}
		if v != latest {
			t.Fatalf("expected version %d, got %d", latest, v)
		}
	}
	got, err := Version(ctx, conn)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if got != latest {
		t.Fatalf("expected recorded version %d, got %d", latest, got)
	}
	for _, table := range []string{"personas", "workstreams", "tasks", "events"} {
		var n int
		if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n); err != nil {
			t.Fatalf("lookup %s: %v", table, err)
		}
		if n != 1 {
			t.Fatalf("table %s missing", table)
		}
	}
}
