package main

import (
	"context"
	"database/sql"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/rl1809/slot-transfer/internal/adapter/handler"
	"github.com/rl1809/slot-transfer/internal/adapter/handler/rpc"
	"github.com/rl1809/slot-transfer/internal/adapter/journal"
	"github.com/rl1809/slot-transfer/internal/adapter/storage"
	"github.com/rl1809/slot-transfer/internal/config"
	"github.com/rl1809/slot-transfer/internal/core/domain"
	"github.com/rl1809/slot-transfer/internal/core/service"
	"github.com/rl1809/slot-transfer/internal/metrics"
	"github.com/rl1809/slot-transfer/internal/port"
)

// inventoryStore is what every storage backend provides.
type inventoryStore interface {
	port.InventoryRepository
	SetInventory(ctx context.Context, inv domain.Inventory) error
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	log := newLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.Storage.Backend, err)
	}
	if err := seed(ctx, store, cfg); err != nil {
		log.Fatalf("failed to seed inventories: %v", err)
	}

	// Initialize idempotency cache
	var cache port.CacheRepository
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		log.WithField("addr", cfg.Redis.Addr).Info("connected to redis")
		cache = storage.NewRedisAdapter(rdb, cfg.Redis.IdempotencyTTL)
	} else {
		log.Warn("redis disabled, idempotency keys are kept in process")
		cache = storage.NewMemoryCache(cfg.Redis.IdempotencyTTL)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize service
	transferService := service.NewTransferService(store, cache, service.Config{
		StackLimit:      cfg.Planner.StackLimit,
		AllowPartial:    cfg.Planner.AllowPartial,
		MaxApplyRetries: cfg.Planner.MaxApplyRetries,
		QueueSize:       cfg.Workers.QueueSize,
	}, m, log)

	j := journal.New(cfg.Journal.Dir)
	feed := handler.NewFeed(log)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers.Count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, transferService.Events(), j, feed, log)
		}(i)
	}
	log.WithField("workers", cfg.Workers.Count).Info("started event workers")

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	rpc.RegisterTransferServiceServer(grpcServer, handler.NewGRPCHandler(transferService, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Infof("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.WithError(err).Error("gRPC server error")
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(transferService, log)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/plan", httpHandler.Plan)
	mux.HandleFunc("/api/preview", httpHandler.Preview)
	mux.HandleFunc("/api/transfer", httpHandler.Transfer)
	mux.HandleFunc("/api/inventory", httpHandler.Inventory)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/ws/transfers", feed)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	feed.Close()
	httpServer.Shutdown(shutdownCtx)
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	// No transfer can be in flight now; drain the queue.
	transferService.Close()
	wg.Wait()
	if err := j.Close(); err != nil {
		log.WithError(err).Error("failed to close journal")
	}
	log.Info("workers stopped")

	if rdb != nil {
		rdb.Close()
	}
	closeStore()
	log.Info("connections closed")
}

func newLogger(cfg config.Log) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		log.WithError(err).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (inventoryStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("connected to mysql")
		return storage.NewMySQLAdapter(db, cfg.Planner.Capacities), func() { db.Close() }, nil

	case config.BackendSQLite:
		s, err := storage.OpenSQLite(cfg.SQLite.Path, cfg.Planner.Capacities)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("path", cfg.SQLite.Path).Info("opened sqlite store")
		return s, func() { s.Close() }, nil

	default:
		log.Warn("using in-memory store, inventories are lost on exit")
		return storage.NewMemoryAdapter(cfg.Planner.Capacities), func() {}, nil
	}
}

// seed writes configured inventories that are not stored yet.
func seed(ctx context.Context, store inventoryStore, cfg config.Config) error {
	for _, s := range cfg.Seed {
		existing, err := store.GetInventory(ctx, s.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := store.SetInventory(ctx, s.Inventory(cfg.Planner.Capacities)); err != nil {
			return err
		}
	}
	return nil
}

func workerLoop(id int, events <-chan domain.TransferEvent, j *journal.Journal, feed *handler.Feed, log logrus.FieldLogger) {
	log = log.WithField("worker", id)
	for ev := range events {
		if err := j.Write(ev); err != nil {
			log.WithError(err).WithField("transfer_id", ev.ID).Error("failed to journal transfer")
		}
		feed.Publish(ev)
		log.WithFields(logrus.Fields{
			"transfer_id": ev.ID,
			"request_id":  ev.RequestID,
			"moved":       ev.Plan.TotalMoved,
			"status":      ev.Status,
		}).Debug("transfer recorded")
	}
}
