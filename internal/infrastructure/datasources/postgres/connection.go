package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"onepay.payagent/internal/config"
	"onepay.payagent/internal/infrastructure/models"
)

var (
	openGorm = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt:          false,
			DisableAutomaticPing: true,
			Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		})
	}
	dbPing = func(db *sql.DB) error { return db.Ping() }
)

// NewConnection opens the history database and verifies it is reachable
func NewConnection(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := openGorm(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := dbPing(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the transaction history table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.TransactionRecord{}); err != nil {
		return fmt.Errorf("failed to migrate transaction history: %w", err)
	}
	return nil
}
