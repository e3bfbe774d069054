package port

import (
	"context"

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

type InventoryRepository interface {
	// GetInventory returns a consistent snapshot of one inventory
	GetInventory(ctx context.Context, inventoryID string) (*domain.Inventory, error)

	// ApplyTransfer writes the post-transfer slot contents of both inventories
	// in one transaction. It fails with a version conflict if either inventory
	// changed since the snapshots were read.
	ApplyTransfer(ctx context.Context, source, target domain.Inventory) error
}
