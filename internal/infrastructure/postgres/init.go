package postgres

import (
	"fmt"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB открывает пул соединений. Схема управляется миграциями, AutoMigrate не используется.
func InitDB(cfg *config.LedgerConfig) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.Env == "local" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.LedgerDB.Dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.LedgerDB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.LedgerDB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.LedgerDB.ConnMaxLifetime)

	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
