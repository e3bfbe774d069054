package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS inventories (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_slots (
		inventory_id TEXT NOT NULL,
		slot_index INTEGER NOT NULL,
		item_type TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		PRIMARY KEY (inventory_id, slot_index)
	)`,
}

type SQLiteAdapter struct {
	*sqlStore
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string, capacities map[domain.InventoryKind]int) (*SQLiteAdapter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection keeps transactions serialized.
	db.SetMaxOpenConns(1)
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return NewSQLiteAdapter(db, capacities), nil
}

func NewSQLiteAdapter(db *sql.DB, capacities map[domain.InventoryKind]int) *SQLiteAdapter {
	return &SQLiteAdapter{sqlStore: &sqlStore{
		db:         db,
		capacities: capacities,
		upsertInventory: `
			INSERT INTO inventories (id, kind, version, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET kind = excluded.kind, version = excluded.version, updated_at = excluded.updated_at`,
	}}
}

func (s *SQLiteAdapter) Close() error {
	return s.db.Close()
}
