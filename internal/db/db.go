// Package db provides the reading store drivers. The CrateDB driver speaks
// the PostgreSQL wire protocol through pgx and accepts a DBTX interface
// satisfied by *pgxpool.Pool and pgx.Tx; the badger driver embeds the store
// in-process for single-node deployments.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"plantwatch/internal/config"
	"plantwatch/internal/types"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ReadingStore is the time-series store shared by the ingestion service and
// the dashboard. Implementations are safe for concurrent use.
type ReadingStore interface {
	// Insert appends one reading.
	Insert(ctx context.Context, r types.Reading) error
	// Flush makes previously inserted readings visible to reads.
	Flush(ctx context.Context) error
	// History returns every reading ordered by timestamp ascending, ties by id.
	History(ctx context.Context) ([]types.Reading, error)
	// Latest returns the most recent reading, or nil when the store is empty.
	Latest(ctx context.Context) (*types.Reading, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the store selected by cfg.Driver. With AutoMigrate set, the
// crate table is created when missing.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (ReadingStore, error) {
	switch cfg.Driver {
	case config.DriverCrate:
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := NewCrateStore(pool, cfg.Schema, cfg.Table, pool.Close)
		if cfg.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				pool.Close()
				return nil, err
			}
			logger.Info("reading table ensured", "schema", cfg.Schema, "table", cfg.Table)
		}
		return store, nil
	case config.DriverBadger:
		return OpenBadgerStore(cfg.BadgerPath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// StoreProbe adapts a ReadingStore to the health check contract.
type StoreProbe struct {
	Store ReadingStore
}

func (p StoreProbe) Name() string { return "store" }

func (p StoreProbe) Check(ctx context.Context) error { return p.Store.Ping(ctx) }
