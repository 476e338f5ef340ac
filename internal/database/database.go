package database

import (
	"fmt"
	"time"

	"github.com/lendaworks/paybridge/internal/config"
	"github.com/lendaworks/paybridge/internal/database/migrations"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the Postgres connection, configures the pool and runs the
// migrations. TranslateError is on so duplicate-key failures surface as
// gorm.ErrDuplicatedKey for the applier's conflict mapping.
func InitDB(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dbConfig.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
