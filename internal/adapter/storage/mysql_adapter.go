package storage

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

type MySQLAdapter struct {
	*sqlStore
}

func NewMySQLAdapter(db *sql.DB, capacities map[domain.InventoryKind]int) *MySQLAdapter {
	return &MySQLAdapter{sqlStore: &sqlStore{
		db:         db,
		capacities: capacities,
		upsertInventory: `
			INSERT INTO inventories (id, kind, version, updated_at) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE kind = VALUES(kind), version = VALUES(version), updated_at = VALUES(updated_at)`,
		lockConflict: isMySQLLockConflict,
	}}
}

// isMySQLLockConflict reports InnoDB deadlocks and lock wait timeouts. The
// transaction was rolled back, so re-planning from fresh snapshots is safe.
func isMySQLLockConflict(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == mysqlErrDeadlock || myErr.Number == mysqlErrLockWaitTimeout
}
