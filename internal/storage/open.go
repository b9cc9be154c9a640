// Package storage picks the LedgerStore backend named in configuration.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/balance-ledger/internal/interfaces"
	"github.com/sheikh-saqib/balance-ledger/internal/storage/gormstore"
	"github.com/sheikh-saqib/balance-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/balance-ledger/internal/storage/postgres"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string
	DSN    string
	// Migrate creates missing tables on start.
	Migrate bool
	Gorm    gormstore.Config
}

// Open returns the configured store and a func releasing its resources.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (interfaces.LedgerStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "", DriverMemory:
		logger.Info("using in-memory ledger store")
		return memory.NewMemoryLedgerStore(), noop, nil

	case DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.NewPostgresLedgerStore(db)
		if cfg.Migrate {
			if err := store.Migrate(ctx); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		logger.Info("using postgres ledger store")
		return store, db.Close, nil

	case DriverMySQL, DriverSQLite:
		gcfg := cfg.Gorm
		gcfg.Dialect = cfg.Driver
		gcfg.DSN = cfg.DSN
		db, err := gormstore.Open(gcfg)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		store := gormstore.NewGormLedgerStore(db)
		if cfg.Migrate {
			if err := store.Migrate(); err != nil {
				sqlDB.Close()
				return nil, nil, err
			}
		}
		logger.Info("using gorm ledger store", zap.String("dialect", cfg.Driver))
		return store, sqlDB.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
