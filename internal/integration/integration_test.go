package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/rl1809/slot-transfer/internal/adapter/journal"
	"github.com/rl1809/slot-transfer/internal/adapter/storage"
	"github.com/rl1809/slot-transfer/internal/core/domain"
	"github.com/rl1809/slot-transfer/internal/core/service"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	cache   *storage.RedisAdapter
	db      *storage.MySQLAdapter
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/slottransfer?parseTime=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	schema, err := os.ReadFile(filepath.Join("..", "..", "scripts", "mysql_schema.sql"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	return &testEnv{
		redis: rdb,
		mysql: db,
		cache: storage.NewRedisAdapter(rdb, 0),
		db:    storage.NewMySQLAdapter(db, domain.DefaultCapacities),
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

// seedPair stores a player holding stock X in slot 0 and an empty chest,
// under unique ids so runs do not collide.
func (e *testEnv) seedPair(t *testing.T, stock int) (string, string) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	playerID, chestID := "it-player-"+suffix, "it-chest-"+suffix

	var slots []domain.Slot
	for i := 0; stock > 0; i++ {
		n := min(stock, domain.DefaultStackLimit)
		slots = append(slots, domain.Slot{Index: i, ItemType: "X", Quantity: n})
		stock -= n
	}
	if err := e.db.SetInventory(ctx, domain.Inventory{ID: playerID, Kind: domain.InventoryKindPlayer, Slots: slots}); err != nil {
		t.Fatalf("seed player: %v", err)
	}
	if err := e.db.SetInventory(ctx, domain.Inventory{ID: chestID, Kind: domain.InventoryKindChest}); err != nil {
		t.Fatalf("seed chest: %v", err)
	}
	t.Cleanup(func() {
		e.mysql.Exec(`DELETE FROM inventory_slots WHERE inventory_id IN (?, ?)`, playerID, chestID)
		e.mysql.Exec(`DELETE FROM inventories WHERE id IN (?, ?)`, playerID, chestID)
	})
	return playerID, chestID
}

func (e *testEnv) newService(t *testing.T, retries int) *service.TransferService {
	logger, _ := test.NewNullLogger()
	svc := service.NewTransferService(e.db, e.cache, service.Config{
		MaxApplyRetries: retries,
		QueueSize:       1000,
	}, nil, logger)
	t.Cleanup(svc.Close)
	return svc
}

func TestIntegration_TokenizeClaimRoundTrip(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	playerID, chestID := env.seedPair(t, 150)
	svc := env.newService(t, 3)

	j := journal.New(t.TempDir())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range svc.Events() {
			if err := j.Write(ev); err != nil {
				t.Errorf("journal: %v", err)
			}
		}
	}()

	src, dst, _ := domain.ResolveAction(domain.ActionTokenize, playerID, chestID)
	ev, err := svc.Transfer(ctx, service.TransferInput{
		RequestID: uuid.NewString(), SourceID: src, TargetID: dst, ItemType: "X", Quantity: 120,
	})
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if ev.Plan.TotalMoved != 120 {
		t.Errorf("expected 120 moved, got %d", ev.Plan.TotalMoved)
	}

	src, dst, _ = domain.ResolveAction(domain.ActionClaim, playerID, chestID)
	if _, err := svc.Transfer(ctx, service.TransferInput{
		RequestID: uuid.NewString(), SourceID: src, TargetID: dst, ItemType: "X", Quantity: 20,
	}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	player, _ := env.db.GetInventory(ctx, playerID)
	chest, _ := env.db.GetInventory(ctx, chestID)
	if player.Total("X") != 50 || chest.Total("X") != 100 {
		t.Errorf("expected player 50 / chest 100, got %d / %d", player.Total("X"), chest.Total("X"))
	}
	for _, s := range append(player.Slots, chest.Slots...) {
		if s.Quantity > domain.DefaultStackLimit {
			t.Errorf("slot %d over stack limit: %d", s.Index, s.Quantity)
		}
	}
	if player.Version != 2 || chest.Version != 2 {
		t.Errorf("expected both versions at 2, got %d / %d", player.Version, chest.Version)
	}

	svc.Close()
	<-done
	j.Close()
	events, err := journal.ReadDir(j.Dir())
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 journaled transfers, got %d", len(events))
	}
}

func TestIntegration_ConcurrentTransfersConserveUnits(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	const stock, requests = 30, 60
	playerID, chestID := env.seedPair(t, stock)
	svc := env.newService(t, requests)

	go func() {
		for range svc.Events() {
		}
	}()

	var success, insufficient atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(ctx, service.TransferInput{
				RequestID: uuid.NewString(), SourceID: playerID, TargetID: chestID, ItemType: "X", Quantity: 1,
			})
			switch {
			case err == nil:
				success.Add(1)
			case errors.Is(err, domain.ErrInsufficientSource):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success.Load() != stock || insufficient.Load() != requests-stock {
		t.Errorf("expected %d/%d, got %d/%d", stock, requests-stock, success.Load(), insufficient.Load())
	}

	player, _ := env.db.GetInventory(ctx, playerID)
	chest, _ := env.db.GetInventory(ctx, chestID)
	if player.Total("X") != 0 || chest.Total("X") != stock {
		t.Errorf("units not conserved: player %d chest %d", player.Total("X"), chest.Total("X"))
	}
}

func TestIntegration_IdempotencyAcrossInstances(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	playerID, chestID := env.seedPair(t, 10)
	a, b := env.newService(t, 3), env.newService(t, 3)
	for _, svc := range []*service.TransferService{a, b} {
		go func(svc *service.TransferService) {
			for range svc.Events() {
			}
		}(svc)
	}

	requestID := fmt.Sprintf("it-%s", uuid.NewString())
	t.Cleanup(func() { env.cache.ClearIdempotency(context.Background(), requestID) })

	in := service.TransferInput{RequestID: requestID, SourceID: playerID, TargetID: chestID, ItemType: "X", Quantity: 4}
	if _, err := a.Transfer(ctx, in); err != nil {
		t.Fatalf("first transfer: %v", err)
	}
	if _, err := b.Transfer(ctx, in); !errors.Is(err, service.ErrDuplicateRequest) {
		t.Errorf("expected ErrDuplicateRequest from second instance, got %v", err)
	}

	chest, _ := env.db.GetInventory(ctx, chestID)
	if chest.Total("X") != 4 {
		t.Errorf("expected 4 in chest, got %d", chest.Total("X"))
	}
}

func TestIntegration_OppositeTransfersReplanInsteadOfFailing(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	const perSide, perDirection = 50, 40
	playerID, chestID := env.seedPair(t, perSide)
	if err := env.db.SetInventory(ctx, domain.Inventory{ID: chestID, Kind: domain.InventoryKindChest, Slots: []domain.Slot{
		{Index: 0, ItemType: "X", Quantity: perSide},
	}}); err != nil {
		t.Fatalf("seed chest: %v", err)
	}
	svc := env.newService(t, 4*perDirection)

	go func() {
		for range svc.Events() {
		}
	}()

	var failed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2*perDirection; i++ {
		action := domain.ActionTokenize
		if i%2 == 1 {
			action = domain.ActionClaim
		}
		src, dst, _ := domain.ResolveAction(action, playerID, chestID)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Transfer(ctx, service.TransferInput{
				RequestID: uuid.NewString(), SourceID: src, TargetID: dst, ItemType: "X", Quantity: 1,
			}); err != nil {
				failed.Add(1)
				t.Errorf("%s failed: %v", action, err)
			}
		}()
	}
	wg.Wait()

	if failed.Load() != 0 {
		t.Fatalf("%d transfers failed", failed.Load())
	}

	player, _ := env.db.GetInventory(ctx, playerID)
	chest, _ := env.db.GetInventory(ctx, chestID)
	if player.Total("X") != perSide || chest.Total("X") != perSide {
		t.Errorf("expected %d/%d after balanced transfers, got %d/%d", perSide, perSide, player.Total("X"), chest.Total("X"))
	}
	if player.Version != 2*perDirection || chest.Version != 2*perDirection {
		t.Errorf("expected every transfer to bump both versions, got %d/%d", player.Version, chest.Version)
	}
}
