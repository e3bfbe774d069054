package handler

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/rl1809/slot-transfer/internal/adapter/storage"
	"github.com/rl1809/slot-transfer/internal/core/domain"
	"github.com/rl1809/slot-transfer/internal/core/service"
)

type mockCacheRepo struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockCacheRepo) ClearIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type testEnv struct {
	repo *storage.MemoryAdapter
	svc  *service.TransferService
}

// newTestEnv seeds player-1 with 50 X in slot 0 and an empty chest-1.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	repo := storage.NewMemoryAdapter(domain.DefaultCapacities)
	repo.SetInventory(ctx, domain.Inventory{ID: "player-1", Kind: domain.InventoryKindPlayer, Slots: []domain.Slot{
		{Index: 0, ItemType: "X", Quantity: 50},
	}})
	repo.SetInventory(ctx, domain.Inventory{ID: "chest-1", Kind: domain.InventoryKindChest})

	logger, _ := test.NewNullLogger()
	svc := service.NewTransferService(repo, &mockCacheRepo{keys: make(map[string]bool)}, service.Config{
		StackLimit: 99,
		QueueSize:  100,
	}, nil, logger)
	t.Cleanup(svc.Close)

	return &testEnv{repo: repo, svc: svc}
}
