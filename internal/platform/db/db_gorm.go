// Package db opens the prediction history database.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"classifier_backend/internal/feature/classification/adapters"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// RetryPolicy bounds the connection attempts made at startup.
type RetryPolicy struct {
	Timeout  time.Duration
	Interval time.Duration
}

// DefaultRetryPolicy waits up to 60s, retrying every 3s.
var DefaultRetryPolicy = RetryPolicy{Timeout: 60 * time.Second, Interval: 3 * time.Second}

// Opener opens a database for a DSN.
type Opener func(dsn string) (*gorm.DB, error)

// NewOpener returns an Opener for the given driver name.
func NewOpener(driver string) (Opener, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch driver {
	case DriverPostgres:
		return func(dsn string) (*gorm.DB, error) { return gorm.Open(postgres.Open(dsn), cfg) }, nil
	case DriverSQLite:
		return func(dsn string) (*gorm.DB, error) { return gorm.Open(sqlite.Open(dsn), cfg) }, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// ConnectWithRetry calls opener until it succeeds or policy.Timeout elapses.
func ConnectWithRetry(ctx context.Context, dsn string, policy RetryPolicy, opener Opener) (*gorm.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	var db *gorm.DB
	err := retry.Do(
		func() error {
			var err error
			db, err = opener(dsn)
			return err
		},
		retry.Attempts(0),
		retry.Delay(policy.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("DB connect failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("DB connect failed after %s: %w", policy.Timeout, err)
	}
	if db == nil {
		return nil, errors.New("DB opener returned no connection")
	}
	return db, nil
}

// Migrate creates or updates the prediction history schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&adapters.PredictionModel{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// OpenDB connects with DefaultRetryPolicy and migrates the schema.
func OpenDB(ctx context.Context, driver, dsn string) (*gorm.DB, error) {
	opener, err := NewOpener(driver)
	if err != nil {
		return nil, err
	}
	db, err := ConnectWithRetry(ctx, dsn, DefaultRetryPolicy, opener)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	slog.Info("prediction history database ready", "driver", driver)
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
