package domain

import (
	"fmt"
	"time"
)

// ItemType identifies a fungible item. The zero value marks an unoccupied slot.
type ItemType string

const EmptyItem ItemType = ""

// DefaultStackLimit is the per-slot maximum used when no limit is configured.
const DefaultStackLimit = 99

type InventoryKind string

const (
	InventoryKindPlayer InventoryKind = "player"
	InventoryKindChest  InventoryKind = "chest"
)

// DefaultCapacities maps inventory kinds to their fixed slot counts.
var DefaultCapacities = map[InventoryKind]int{
	InventoryKindPlayer: 36,
	InventoryKindChest:  27,
}

type Slot struct {
	Index    int      `json:"slot"`
	ItemType ItemType `json:"item_type,omitempty"`
	Quantity int      `json:"quantity"`
}

func (s Slot) IsEmpty() bool {
	return s.ItemType == EmptyItem || s.Quantity == 0
}

// Inventory is a point-in-time snapshot of a fixed-capacity slot array.
// Indices absent from Slots are empty.
type Inventory struct {
	ID        string        `json:"id"`
	Kind      InventoryKind `json:"kind"`
	Capacity  int           `json:"capacity"`
	Version   int           `json:"version"` // optimistic locking
	Slots     []Slot        `json:"slots"`
	UpdatedAt time.Time     `json:"updated_at,omitempty"`
}

// Slot returns the contents of index i, or an empty slot when nothing is stored there.
func (inv Inventory) Slot(i int) Slot {
	for _, s := range inv.Slots {
		if s.Index == i {
			return s
		}
	}
	return Slot{Index: i}
}

// Total sums the quantity of itemType across all slots.
func (inv Inventory) Total(itemType ItemType) int {
	total := 0
	for _, s := range inv.Slots {
		if !s.IsEmpty() && s.ItemType == itemType {
			total += s.Quantity
		}
	}
	return total
}

// Validate reports structural problems with the snapshot: non-positive
// capacity, out-of-range or duplicate indices, and quantities outside
// 0..stackLimit.
func (inv Inventory) Validate(stackLimit int) error {
	if inv.Capacity <= 0 {
		return fmt.Errorf("inventory %q: capacity %d must be positive", inv.ID, inv.Capacity)
	}
	seen := make(map[int]struct{}, len(inv.Slots))
	for _, s := range inv.Slots {
		if s.Index < 0 || s.Index >= inv.Capacity {
			return fmt.Errorf("inventory %q: slot %d outside 0..%d", inv.ID, s.Index, inv.Capacity-1)
		}
		if _, dup := seen[s.Index]; dup {
			return fmt.Errorf("inventory %q: duplicate slot %d", inv.ID, s.Index)
		}
		seen[s.Index] = struct{}{}
		if s.Quantity < 0 || s.Quantity > stackLimit {
			return fmt.Errorf("inventory %q: slot %d quantity %d outside 0..%d", inv.ID, s.Index, s.Quantity, stackLimit)
		}
	}
	return nil
}
