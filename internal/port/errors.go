package port

import "errors"

// ErrVersionConflict is returned by InventoryRepository.ApplyTransfer when a
// snapshot is stale.
var ErrVersionConflict = errors.New("inventory version conflict")
