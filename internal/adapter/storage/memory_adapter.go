package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

// MemoryAdapter keeps inventories in process. It honours the same version
// semantics as the SQL adapters.
type MemoryAdapter struct {
	mu          sync.Mutex
	capacities  map[domain.InventoryKind]int
	inventories map[string]domain.Inventory
}

func NewMemoryAdapter(capacities map[domain.InventoryKind]int) *MemoryAdapter {
	return &MemoryAdapter{
		capacities:  capacities,
		inventories: make(map[string]domain.Inventory),
	}
}

func (m *MemoryAdapter) GetInventory(ctx context.Context, inventoryID string) (*domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.inventories[inventoryID]
	if !ok {
		return nil, nil
	}
	capacity, ok := m.capacities[inv.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (inventory %s)", ErrUnknownKind, inv.Kind, inv.ID)
	}
	inv.Slots = append([]domain.Slot(nil), inv.Slots...)
	inv.Capacity = capacity
	return &inv, nil
}

func (m *MemoryAdapter) ApplyTransfer(ctx context.Context, source, target domain.Inventory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, inv := range []domain.Inventory{source, target} {
		cur, ok := m.inventories[inv.ID]
		if !ok || cur.Version != inv.Version {
			return ErrVersionConflict
		}
	}
	now := time.Now().UTC()
	for _, inv := range []domain.Inventory{source, target} {
		m.store(inv, inv.Version+1, now)
	}
	return nil
}

func (m *MemoryAdapter) SetInventory(ctx context.Context, inv domain.Inventory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(inv, inv.Version, time.Now().UTC())
	return nil
}

func (m *MemoryAdapter) store(inv domain.Inventory, version int, now time.Time) {
	slots := make([]domain.Slot, 0, len(inv.Slots))
	for _, s := range inv.Slots {
		if !s.IsEmpty() {
			slots = append(slots, s)
		}
	}
	inv.Slots = slots
	inv.Version = version
	inv.UpdatedAt = now
	m.inventories[inv.ID] = inv
}
