package domain

import (
	"fmt"
	"sort"
	"time"
)

type TransferRequest struct {
	ItemType ItemType  `json:"item_type"`
	Quantity int       `json:"quantity"`
	Source   Inventory `json:"source"`
	Target   Inventory `json:"target"`
}

type TransferRecord struct {
	SourceSlot int `json:"slot_from"`
	TargetSlot int `json:"slot_to"`
	Amount     int `json:"amount"`
}

type TransferPlan struct {
	Records    []TransferRecord `json:"records"`
	TotalMoved int              `json:"total_moved"`
}

// Action names the two directions supported between a player and a chest.
type Action string

const (
	// ActionTokenize moves items from the player into the chest.
	ActionTokenize Action = "tokenize"
	// ActionClaim moves items from the chest back to the player.
	ActionClaim Action = "claim"
)

// ResolveAction maps an action onto (source, target) inventory IDs.
func ResolveAction(action Action, playerID, chestID string) (string, string, error) {
	switch action {
	case ActionTokenize:
		return playerID, chestID, nil
	case ActionClaim:
		return chestID, playerID, nil
	default:
		return "", "", fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, action)
	}
}

type TransferStatus string

const (
	TransferStatusApplied TransferStatus = "applied"
	TransferStatusPartial TransferStatus = "partial"
)

// TransferEvent describes a plan that has been applied to live inventories.
type TransferEvent struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id"`
	SourceID  string         `json:"source_id"`
	TargetID  string         `json:"target_id"`
	ItemType  ItemType       `json:"item_type"`
	Requested int            `json:"requested"`
	Plan      TransferPlan   `json:"plan"`
	Status    TransferStatus `json:"status"`
	Attempts  int            `json:"attempts"`
	CreatedAt time.Time      `json:"created_at"`
}

// ApplyPlan returns the source and target snapshots as they look after plan
// is carried out. The inputs are not modified. Returned slot lists are sorted
// by index and omit empty slots.
func ApplyPlan(source, target Inventory, itemType ItemType, plan TransferPlan, stackLimit int) (Inventory, Inventory, error) {
	src := slotMap(source)
	dst := slotMap(target)

	for i, r := range plan.Records {
		if r.Amount <= 0 {
			return Inventory{}, Inventory{}, fmt.Errorf("record %d: non-positive amount %d", i, r.Amount)
		}
		from, ok := src[r.SourceSlot]
		if !ok || from.ItemType != itemType || from.Quantity < r.Amount {
			return Inventory{}, Inventory{}, fmt.Errorf("record %d: source slot %d cannot supply %d %s", i, r.SourceSlot, r.Amount, itemType)
		}
		if r.TargetSlot < 0 || r.TargetSlot >= target.Capacity {
			return Inventory{}, Inventory{}, fmt.Errorf("record %d: target slot %d outside capacity %d", i, r.TargetSlot, target.Capacity)
		}
		to, occupied := dst[r.TargetSlot]
		if occupied && to.ItemType != itemType {
			return Inventory{}, Inventory{}, fmt.Errorf("record %d: target slot %d holds %s", i, r.TargetSlot, to.ItemType)
		}
		if to.Quantity+r.Amount > stackLimit {
			return Inventory{}, Inventory{}, fmt.Errorf("record %d: target slot %d would exceed stack limit %d", i, r.TargetSlot, stackLimit)
		}

		from.Quantity -= r.Amount
		if from.Quantity == 0 {
			delete(src, r.SourceSlot)
		} else {
			src[r.SourceSlot] = from
		}
		dst[r.TargetSlot] = Slot{Index: r.TargetSlot, ItemType: itemType, Quantity: to.Quantity + r.Amount}
	}

	source.Slots = sortedSlots(src)
	target.Slots = sortedSlots(dst)
	return source, target, nil
}

func slotMap(inv Inventory) map[int]Slot {
	m := make(map[int]Slot, len(inv.Slots))
	for _, s := range inv.Slots {
		if s.IsEmpty() {
			continue
		}
		m[s.Index] = s
	}
	return m
}

func sortedSlots(m map[int]Slot) []Slot {
	out := make([]Slot, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
