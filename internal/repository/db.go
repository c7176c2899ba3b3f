package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/common"
)

// Open connects to the configured store backend.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (Store, error) {
	logger = common.LoggerOr(logger)
	logger.Info("connecting to store", "driver", cfg.Driver)

	switch cfg.Driver {
	case common.StorePostgres:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			logger.Error("failed to connect to store", "driver", cfg.Driver, "error", err)
			return nil, err
		}
		// Wrap pool as *sql.DB for the ent driver
		drv := entsql.OpenDB(dialect.Postgres, stdlib.OpenDBFromPool(pool))
		logger.Info("successfully connected to store", "driver", cfg.Driver)
		return &sqlStore{drv: drv, pool: pool, logger: logger}, nil

	case common.StoreSQLite:
		drv, err := OpenSQLite(cfg.DSN)
		if err != nil {
			logger.Error("failed to connect to store", "driver", cfg.Driver, "error", err)
			return nil, err
		}
		logger.Info("successfully connected to store", "driver", cfg.Driver)
		return &sqlStore{drv: drv, logger: logger}, nil

	case common.StoreFirestore:
		st, err := OpenFirestore(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to connect to store", "driver", cfg.Driver, "error", err)
			return nil, err
		}
		logger.Info("successfully connected to store", "driver", cfg.Driver, "project", cfg.FirestoreProject)
		return st, nil
	}
	return nil, common.NewAppError(constants.ErrConfig, fmt.Sprintf("unsupported store driver %q", cfg.Driver), common.ErrInvalidInput)
}

func openPool(ctx context.Context, cfg common.StoreConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "roster-scan"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	return pgxpool.NewWithConfig(ctx, pc)
}

// OpenSQLite opens an embedded store. SQLite serializes writers, so one connection is used;
// this also keeps a ":memory:" database alive across calls.
func OpenSQLite(dsn string) (*entsql.Driver, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return entsql.OpenDB(dialect.SQLite, db), nil
}

// NewSQLStore wraps an already opened ent SQL driver.
func NewSQLStore(drv *entsql.Driver, logger *slog.Logger) Store {
	return &sqlStore{drv: drv, logger: common.LoggerOr(logger)}
}
