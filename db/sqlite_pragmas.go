package db

import (
	"fmt"

	"gorm.io/gorm"
)

// applySQLitePragmas runs the connection pragmas selected by cfg. Each
// pragma is independent; the first failure aborts the rest.
func applySQLitePragmas(gdb *gorm.DB, cfg SQLiteConfig) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	var stmts []string
	if cfg.WAL {
		stmts = append(stmts, "PRAGMA journal_mode=WAL;")
	}
	if cfg.BusyTimeoutMs > 0 {
		stmts = append(stmts, fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeoutMs))
	}
	if cfg.ForeignKeys {
		stmts = append(stmts, "PRAGMA foreign_keys=ON;")
	}
	for _, stmt := range stmts {
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply %q: %w", stmt, err)
		}
	}
	return nil
}
