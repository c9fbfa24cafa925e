// Package testutil opens the shared postgres used by repository tests. Tests
// skip when TEST_POSTGRES_DSN is unset.
package testutil

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/solace-backend/internal/data/db"
	"github.com/yungbote/solace-backend/internal/platform/logger"
)

var (
	openOnce sync.Once
	shared   *gorm.DB
	openErr  error
)

// DB returns a migrated connection with the same schema and indexes the
// service builds at startup.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("set TEST_POSTGRES_DSN to run repo integration tests")
	}
	openOnce.Do(func() { shared, openErr = open(dsn) })
	if openErr != nil {
		tb.Fatalf("open test db: %v", openErr)
	}
	return shared
}

func open(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Discard,
	})
	if err != nil {
		return nil, err
	}
	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("uuid-ossp: %w", err)
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := db.EnsureMatchIndexes(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Tx opens a transaction that is rolled back when the test ends.
func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() { tx.Rollback() })
	return tx
}

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}
