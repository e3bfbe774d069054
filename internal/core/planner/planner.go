// Package planner computes slot-to-slot transfer plans between two inventory
// snapshots. Plans fill partially stacked target slots of the same item type
// first, largest free space first, then spill into empty slots in index order.
package planner

import (
	"fmt"

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

// Planner is immutable and safe for concurrent use.
type Planner struct {
	stackLimit int
}

func New(stackLimit int) *Planner {
	if stackLimit <= 0 {
		stackLimit = domain.DefaultStackLimit
	}
	return &Planner{stackLimit: stackLimit}
}

func (p *Planner) StackLimit() int { return p.stackLimit }

// supply tracks what is left to draw from one source slot.
type supply struct {
	index     int
	remaining int
}

// room tracks what is left to fill in one target slot.
type room struct {
	index int
	free  int
}

// Plan builds a transfer plan for req. On ErrInsufficientTargetCapacity the
// returned plan holds everything that could be placed.
func (p *Planner) Plan(req domain.TransferRequest) (domain.TransferPlan, error) {
	if err := p.validate(req); err != nil {
		return domain.TransferPlan{}, err
	}

	sourceSlots := LocateSlots(req.Source, req.ItemType)
	actual := Clamp(req.Quantity, sourceSlots)
	if actual == 0 {
		return domain.TransferPlan{}, &domain.PlanningError{
			Kind:      domain.ErrInsufficientSource,
			Detail:    fmt.Sprintf("no %s in inventory %q", req.ItemType, req.Source.ID),
			Requested: req.Quantity,
		}
	}

	supplies := make([]supply, len(sourceSlots))
	for i, s := range sourceSlots {
		supplies[i] = supply{index: s.Index, remaining: s.Quantity}
	}

	remaining := actual
	records, remaining := p.fillSameType(req.Target, req.ItemType, supplies, remaining)
	if remaining > 0 {
		var more []domain.TransferRecord
		more, remaining = p.fillEmpty(req.Target, supplies, remaining)
		records = append(records, more...)
	}

	plan := assemble(records, actual-remaining)
	if remaining > 0 {
		return plan, &domain.PlanningError{
			Kind:      domain.ErrInsufficientTargetCapacity,
			Detail:    fmt.Sprintf("%d of %d %s could not be placed in inventory %q", remaining, actual, req.ItemType, req.Target.ID),
			Requested: req.Quantity,
			Available: actual,
			Unplaced:  remaining,
		}
	}
	return plan, nil
}

func (p *Planner) validate(req domain.TransferRequest) error {
	invalid := func(format string, args ...any) error {
		return &domain.PlanningError{
			Kind:      domain.ErrInvalidRequest,
			Detail:    fmt.Sprintf(format, args...),
			Requested: req.Quantity,
		}
	}
	if req.Quantity <= 0 {
		return invalid("quantity %d must be positive", req.Quantity)
	}
	if req.ItemType == domain.EmptyItem {
		return invalid("item type is required")
	}
	if req.Source.ID != "" && req.Source.ID == req.Target.ID {
		return invalid("source and target are the same inventory %q", req.Source.ID)
	}
	if err := req.Source.Validate(p.stackLimit); err != nil {
		return invalid("source: %v", err)
	}
	if err := req.Target.Validate(p.stackLimit); err != nil {
		return invalid("target: %v", err)
	}
	return nil
}

// fillSameType tops up target slots already holding itemType. Each step picks
// the target with the most free space (lowest index on ties) and the first
// source slot that still has supply.
func (p *Planner) fillSameType(target domain.Inventory, itemType domain.ItemType, supplies []supply, remaining int) ([]domain.TransferRecord, int) {
	var rooms []room
	for _, s := range LocateSlots(target, itemType) {
		if s.Quantity < p.stackLimit {
			rooms = append(rooms, room{index: s.Index, free: p.stackLimit - s.Quantity})
		}
	}

	var records []domain.TransferRecord
	src := 0
	for remaining > 0 {
		best := -1
		for i, r := range rooms {
			if r.free > 0 && (best < 0 || r.free > rooms[best].free) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		src = nextSupply(supplies, src)
		if src == len(supplies) {
			break
		}

		amount := min(remaining, supplies[src].remaining, rooms[best].free)
		records = append(records, domain.TransferRecord{
			SourceSlot: supplies[src].index,
			TargetSlot: rooms[best].index,
			Amount:     amount,
		})
		supplies[src].remaining -= amount
		rooms[best].free -= amount
		remaining -= amount
	}
	return records, remaining
}

// fillEmpty places the remainder into target slots that were empty in the
// snapshot, ascending by index, up to the stack limit each.
func (p *Planner) fillEmpty(target domain.Inventory, supplies []supply, remaining int) ([]domain.TransferRecord, int) {
	occupied := make(map[int]bool, len(target.Slots))
	for _, s := range target.Slots {
		if !s.IsEmpty() {
			occupied[s.Index] = true
		}
	}

	var records []domain.TransferRecord
	src := nextSupply(supplies, 0)
	for idx := 0; idx < target.Capacity && remaining > 0 && src < len(supplies); idx++ {
		if occupied[idx] {
			continue
		}
		free := p.stackLimit
		for free > 0 && remaining > 0 && src < len(supplies) {
			amount := min(remaining, supplies[src].remaining, free)
			records = append(records, domain.TransferRecord{
				SourceSlot: supplies[src].index,
				TargetSlot: idx,
				Amount:     amount,
			})
			supplies[src].remaining -= amount
			free -= amount
			remaining -= amount
			src = nextSupply(supplies, src)
		}
	}
	return records, remaining
}

func nextSupply(supplies []supply, from int) int {
	for from < len(supplies) && supplies[from].remaining == 0 {
		from++
	}
	return from
}

func assemble(records []domain.TransferRecord, total int) domain.TransferPlan {
	out := make([]domain.TransferRecord, 0, len(records))
	for _, r := range records {
		if r.Amount > 0 {
			out = append(out, r)
		}
	}
	return domain.TransferPlan{Records: out, TotalMoved: total}
}
