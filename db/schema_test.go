package db

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestEnsureSchemaIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "recall.db")
	gdb, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := EnsureSchema(gdb, slog.Default()); err != nil {
			t.Fatalf("ensure schema pass %d: %v", i, err)
		}
	}

	// Every additive column must be writable.
	err = gdb.Exec(`INSERT INTO memory_items
		(id, content, type, created_at, updated_at, tenant_id, persona_id,
		 project_id, contact_id, metadata, lineage, importance, pinned,
		 ttl_seconds, last_accessed, access_count)
		VALUES ('x', 'c', 'note', 1, 1, 't', 'p', 'pr', 'ct', '{}', '{}', 1.5, 1, 60, 2, 3)`).Error
	if err != nil {
		t.Fatalf("insert with all columns: %v", err)
	}

	var n int64
	if err := gdb.Raw("SELECT COUNT(*) FROM memory_fts").Scan(&n).Error; err != nil {
		t.Fatalf("query fts table: %v", err)
	}
}

func TestEnsureSchemaUpgradesOldDatabase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "recall.db")
	gdb, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// A v1-era database: base shape only, with data already in it.
	err = gdb.Exec(`CREATE TABLE memory_items (
		id TEXT PRIMARY KEY, content TEXT NOT NULL, type TEXT,
		created_at INTEGER NOT NULL, updated_at INTEGER NOT NULL)`).Error
	if err != nil {
		t.Fatalf("create old table: %v", err)
	}
	err = gdb.Exec(`INSERT INTO memory_items (id, content, type, created_at, updated_at)
		VALUES ('legacy', 'old row', 'note', 1, 1)`).Error
	if err != nil {
		t.Fatalf("insert old row: %v", err)
	}

	if err := EnsureSchema(gdb, slog.Default()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	// The old row survives and reads back with the new columns' defaults.
	type upgradedRow struct {
		Importance  float64
		Pinned      bool
		AccessCount int64
	}
	var p upgradedRow
	err = gdb.Raw("SELECT importance, pinned, access_count FROM memory_items WHERE id = 'legacy'").
		Scan(&p).Error
	if err != nil {
		t.Fatalf("read upgraded row: %v", err)
	}
	if p.Importance != 1.0 || p.Pinned || p.AccessCount != 0 {
		t.Fatalf("defaults not applied: %+v", p)
	}
}

func TestResolveSQLiteDSNMemoryPassthrough(t *testing.T) {
	got, err := ResolveSQLiteDSN(":memory:")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != ":memory:" {
		t.Fatalf("got %q", got)
	}
}
