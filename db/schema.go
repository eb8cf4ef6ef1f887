package db

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// Base tables. Columns listed here are the original v1 shape; everything the
// item model grew later arrives through additiveColumns so that any
// historical database file keeps working.
const baseSchema = `
CREATE TABLE IF NOT EXISTS memory_items (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	type       TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS data_banks (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT,
	entries       TEXT,
	created_at    INTEGER NOT NULL,
	last_modified INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	metadata        TEXT,
	created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memory_updated ON memory_items(updated_at);
CREATE INDEX IF NOT EXISTS idx_conversation_messages ON conversation_messages(conversation_id, created_at);
`

// Shadow full-text index over memory content. A standalone FTS5 table keyed
// by item id; the store keeps it in lockstep on every write instead of
// relying on triggers.
const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS memory_fts USING fts5(
	id UNINDEXED,
	content
);
`

// ColumnSpec describes one column added to memory_items after the initial
// release. Order matters: columns are applied top to bottom and never
// reordered, renamed or dropped.
type ColumnSpec struct {
	Name    string
	Type    string
	Default string
}

var additiveColumns = []ColumnSpec{
	{Name: "tenant_id", Type: "TEXT"},
	{Name: "persona_id", Type: "TEXT"},
	{Name: "project_id", Type: "TEXT"},
	{Name: "contact_id", Type: "TEXT"},
	{Name: "metadata", Type: "TEXT"},
	{Name: "lineage", Type: "TEXT"},
	{Name: "importance", Type: "REAL", Default: "1.0"},
	{Name: "pinned", Type: "INTEGER", Default: "0"},
	{Name: "ttl_seconds", Type: "INTEGER"},
	{Name: "last_accessed", Type: "INTEGER"},
	{Name: "access_count", Type: "INTEGER", Default: "0"},
}

// EnsureSchema creates the base tables and applies every additive column.
// It is safe to run on every startup against any historical database: an
// "add column" failure means the column is already there and is ignored.
func EnsureSchema(gdb *gorm.DB, log *slog.Logger) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := gdb.Exec(baseSchema).Error; err != nil {
		return fmt.Errorf("create base schema: %w", err)
	}
	if err := gdb.Exec(ftsSchema).Error; err != nil {
		return fmt.Errorf("create fts schema: %w", err)
	}
	for _, col := range additiveColumns {
		stmt := fmt.Sprintf("ALTER TABLE memory_items ADD COLUMN %s %s", col.Name, col.Type)
		if col.Default != "" {
			stmt += " DEFAULT " + col.Default
		}
		if err := gdb.Exec(stmt).Error; err != nil {
			// Already applied on this database.
			log.Debug("schema column skipped", "column", col.Name)
		}
	}
	return nil
}
