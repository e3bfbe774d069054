package planner

import (
	"sort"

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

// LocateSlots returns the occupied slots of inv holding itemType, ordered by
// slot index. An empty result means nothing is available.
func LocateSlots(inv domain.Inventory, itemType domain.ItemType) []domain.Slot {
	var out []domain.Slot
	for _, s := range inv.Slots {
		if !s.IsEmpty() && s.ItemType == itemType {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Clamp caps requested to the total quantity held by slots.
func Clamp(requested int, slots []domain.Slot) int {
	available := 0
	for _, s := range slots {
		available += s.Quantity
	}
	return min(requested, available)
}
