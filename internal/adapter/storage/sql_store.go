package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rl1809/slot-transfer/internal/core/domain"
	"github.com/rl1809/slot-transfer/internal/port"
)

var (
	ErrVersionConflict = port.ErrVersionConflict
	ErrUnknownKind     = errors.New("no capacity configured for inventory kind")
)

// sqlStore holds the queries shared by the MySQL and SQLite adapters. Only
// the inventory upsert differs between the two dialects.
type sqlStore struct {
	db              *sql.DB
	capacities      map[domain.InventoryKind]int
	upsertInventory string
	// lockConflict reports driver errors (deadlocks, lock waits) that mean a
	// concurrent writer won and the caller should re-plan.
	lockConflict func(error) bool
}

func (s *sqlStore) GetInventory(ctx context.Context, inventoryID string) (*domain.Inventory, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		inv       domain.Inventory
		updatedAt int64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, kind, version, updated_at
		FROM inventories WHERE id = ?`, inventoryID,
	).Scan(&inv.ID, &inv.Kind, &inv.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	inv.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	capacity, ok := s.capacities[inv.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (inventory %s)", ErrUnknownKind, inv.Kind, inv.ID)
	}
	inv.Capacity = capacity

	rows, err := tx.QueryContext(ctx, `
		SELECT slot_index, item_type, quantity
		FROM inventory_slots WHERE inventory_id = ? AND quantity > 0
		ORDER BY slot_index`, inventoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slot domain.Slot
		if err := rows.Scan(&slot.Index, &slot.ItemType, &slot.Quantity); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		inv.Slots = append(inv.Slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return &inv, nil
}

// ApplyTransfer bumps both inventory versions, failing with
// ErrVersionConflict if either moved on, and rewrites their slot rows.
// Rows are locked in inventory ID order so opposite transfers between the
// same pair cannot deadlock each other.
func (s *sqlStore) ApplyTransfer(ctx context.Context, source, target domain.Inventory) error {
	err := s.applyTransfer(ctx, source, target)
	if err != nil && s.lockConflict != nil && s.lockConflict(err) {
		return fmt.Errorf("%w: %v", ErrVersionConflict, err)
	}
	return err
}

func (s *sqlStore) applyTransfer(ctx context.Context, source, target domain.Inventory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, inv := range lockOrder(source, target) {
		result, err := tx.ExecContext(ctx, `
			UPDATE inventories
			SET version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`,
			now, inv.ID, inv.Version,
		)
		if err != nil {
			return fmt.Errorf("update inventory %s: %w", inv.ID, err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrVersionConflict
		}

		if err := writeSlots(ctx, tx, inv); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func lockOrder(invs ...domain.Inventory) []domain.Inventory {
	sort.Slice(invs, func(i, j int) bool { return invs[i].ID < invs[j].ID })
	return invs
}

// SetInventory creates or replaces an inventory and its slots. Used for
// seeding and administrative resets; it does not check versions.
func (s *sqlStore) SetInventory(ctx context.Context, inv domain.Inventory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.upsertInventory,
		inv.ID, inv.Kind, inv.Version, time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("upsert inventory %s: %w", inv.ID, err)
	}
	if err := writeSlots(ctx, tx, inv); err != nil {
		return err
	}

	return tx.Commit()
}

func writeSlots(ctx context.Context, tx *sql.Tx, inv domain.Inventory) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_slots WHERE inventory_id = ?`, inv.ID); err != nil {
		return fmt.Errorf("clear slots %s: %w", inv.ID, err)
	}
	for _, slot := range inv.Slots {
		if slot.IsEmpty() {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_slots (inventory_id, slot_index, item_type, quantity)
			VALUES (?, ?, ?, ?)`,
			inv.ID, slot.Index, slot.ItemType, slot.Quantity,
		); err != nil {
			return fmt.Errorf("insert slot %s/%d: %w", inv.ID, slot.Index, err)
		}
	}
	return nil
}
