// Package config loads the server configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/slot-transfer/internal/core/domain"
)

const (
	BackendMySQL  = "mysql"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`

	Storage Storage `yaml:"storage"`
	MySQL   MySQL   `yaml:"mysql"`
	SQLite  SQLite  `yaml:"sqlite"`
	Redis   Redis   `yaml:"redis"`
	Planner Planner `yaml:"planner"`
	Workers Workers `yaml:"workers"`
	Journal Journal `yaml:"journal"`
	Log     Log     `yaml:"log"`

	// Seed inventories are written at startup when they do not exist yet.
	Seed []SeedInventory `yaml:"seed"`
}

type Storage struct {
	Backend string `yaml:"backend"`
}

type MySQL struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type SQLite struct {
	Path string `yaml:"path"`
}

type Redis struct {
	Addr           string        `yaml:"addr"`
	PoolSize       int           `yaml:"pool_size"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

type Planner struct {
	StackLimit      int                          `yaml:"stack_limit"`
	Capacities      map[domain.InventoryKind]int `yaml:"capacities"`
	AllowPartial    bool                         `yaml:"allow_partial"`
	MaxApplyRetries int                          `yaml:"max_apply_retries"`
}

type Workers struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

type Journal struct {
	Dir string `yaml:"dir"`
}

type SeedInventory struct {
	ID    string               `yaml:"id"`
	Kind  domain.InventoryKind `yaml:"kind"`
	Slots []SeedSlot           `yaml:"slots"`
}

type SeedSlot struct {
	Slot     int             `yaml:"slot"`
	ItemType domain.ItemType `yaml:"item_type"`
	Quantity int             `yaml:"quantity"`
}

func (s SeedInventory) Inventory(capacities map[domain.InventoryKind]int) domain.Inventory {
	inv := domain.Inventory{ID: s.ID, Kind: s.Kind, Capacity: capacities[s.Kind]}
	for _, sl := range s.Slots {
		inv.Slots = append(inv.Slots, domain.Slot{Index: sl.Slot, ItemType: sl.ItemType, Quantity: sl.Quantity})
	}
	return inv
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	caps := make(map[domain.InventoryKind]int, len(domain.DefaultCapacities))
	for k, v := range domain.DefaultCapacities {
		caps[k] = v
	}
	return Config{
		HTTPAddr: ":8080",
		GRPCAddr: ":50051",
		Storage:  Storage{Backend: BackendMySQL},
		MySQL: MySQL{
			DSN:             "root:root@tcp(localhost:3306)/slottransfer?parseTime=true",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLite{Path: "data/slottransfer.db"},
		Redis: Redis{
			Addr:           "localhost:6379",
			PoolSize:       100,
			IdempotencyTTL: 24 * time.Hour,
		},
		Planner: Planner{
			StackLimit:      domain.DefaultStackLimit,
			Capacities:      caps,
			MaxApplyRetries: 3,
		},
		Workers: Workers{Count: 4, QueueSize: 10000},
		Journal: Journal{Dir: "data/journal"},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMySQL, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Planner.StackLimit <= 0 {
		return fmt.Errorf("planner.stack_limit: must be positive, got %d", c.Planner.StackLimit)
	}
	for kind, n := range c.Planner.Capacities {
		if n <= 0 {
			return fmt.Errorf("planner.capacities.%s: must be positive, got %d", kind, n)
		}
	}
	if c.Planner.MaxApplyRetries < 0 {
		return fmt.Errorf("planner.max_apply_retries: must not be negative")
	}
	if c.Workers.Count <= 0 || c.Workers.QueueSize <= 0 {
		return fmt.Errorf("workers: count and queue_size must be positive")
	}
	for i, s := range c.Seed {
		if s.ID == "" {
			return fmt.Errorf("seed[%d]: id is required", i)
		}
		if _, ok := c.Planner.Capacities[s.Kind]; !ok {
			return fmt.Errorf("seed[%d]: no capacity configured for kind %q", i, s.Kind)
		}
		if err := s.Inventory(c.Planner.Capacities).Validate(c.Planner.StackLimit); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
	}
	return nil
}
