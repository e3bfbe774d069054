package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/slot-transfer/internal/adapter/storage"
	"github.com/rl1809/slot-transfer/internal/core/domain"
	"github.com/rl1809/slot-transfer/internal/core/service"
	"github.com/rl1809/slot-transfer/internal/port"
)

const (
	itemType      = domain.ItemType("X")
	initialStock  = 20
	totalRequests = 50
	maxRetries    = totalRequests
)

func main() {
	redisAddr := flag.String("redis", "", "redis address for idempotency keys (in process when empty)")
	flag.Parse()

	ctx := context.Background()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	dir, err := os.MkdirTemp("", "slot-transfer-stress")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	store, err := storage.OpenSQLite(filepath.Join(dir, "stress.db"), domain.DefaultCapacities)
	if err != nil {
		log.Fatalf("failed to open sqlite: %v", err)
	}
	defer store.Close()

	var cache port.CacheRepository = storage.NewMemoryCache(time.Hour)
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		cache = storage.NewRedisAdapter(rdb, time.Hour)
	}

	// The player holds initialStock units spread over a few slots.
	if err := store.SetInventory(ctx, domain.Inventory{ID: "player-1", Kind: domain.InventoryKindPlayer, Slots: []domain.Slot{
		{Index: 0, ItemType: itemType, Quantity: 8},
		{Index: 5, ItemType: itemType, Quantity: 7},
		{Index: 9, ItemType: itemType, Quantity: 5},
	}}); err != nil {
		log.Fatalf("failed to seed player: %v", err)
	}
	if err := store.SetInventory(ctx, domain.Inventory{ID: "chest-1", Kind: domain.InventoryKindChest}); err != nil {
		log.Fatalf("failed to seed chest: %v", err)
	}

	transferService := service.NewTransferService(store, cache, service.Config{
		MaxApplyRetries: maxRetries,
		QueueSize:       totalRequests,
	}, nil, log)
	defer transferService.Close()

	// Drain the event queue in background
	go func() {
		for range transferService.Events() {
		}
	}()

	var successCount, failCount, attempts atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			ev, err := transferService.Transfer(ctx, service.TransferInput{
				RequestID: fmt.Sprintf("stress-%d", n),
				SourceID:  "player-1",
				TargetID:  "chest-1",
				ItemType:  itemType,
				Quantity:  1,
			})
			attempts.Add(int32(ev.Attempts))
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	player, _ := store.GetInventory(ctx, "player-1")
	chest, _ := store.GetInventory(ctx, "chest-1")

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Plan Attempts:    %d\n", attempts.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && fail == totalRequests-initialStock {
		fmt.Printf("PASS: Exactly %d transfers succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	left, moved := player.Total(itemType), chest.Total(itemType)
	fmt.Printf("Player: %d  Chest: %d\n", left, moved)
	if left == 0 && moved == initialStock {
		fmt.Println("PASS: All units conserved")
	} else {
		fmt.Printf("FAIL: Expected 0/%d, got %d/%d\n", initialStock, left, moved)
	}
}
