package app

import (
	"context"
	"fmt"

	"github.com/fiffu/bountywatch/config"
	"github.com/fiffu/bountywatch/lib/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.Database.DSN)
	default:
		dialector = sqlite.Open(cfg.Database.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	log.Sugar().Infow("Database started", "driver", cfg.Database.Driver)

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == config.DriverSQLite {
		// sqlite has a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("Starting migrations")
	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing database")
			return sqlDB.Close()
		},
	})
	return db, nil
}

func NewStore(db *gorm.DB) *store.Store {
	return store.New(db)
}

// NewLedger keeps the seen-item ledger in redis when REDIS_URL is set, and in
// the database otherwise.
func NewLedger(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, st *store.Store) (store.Ledger, error) {
	if cfg.RedisURL == "" {
		return st, nil
	}

	ledger, err := store.NewRedisLedger(context.Background(), cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Info("Using redis seen-item ledger")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ledger.Close()
		},
	})
	return ledger, nil
}
