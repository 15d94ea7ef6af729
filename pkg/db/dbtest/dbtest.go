// Package dbtest opens migrated databases for storage tests.
package dbtest

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

// EnvPostgresDSN points the postgres-backed tests at a disposable database.
const EnvPostgresDSN = "STOREFRONT_TEST_DB_DSN"

var truncateTables = "TRUNCATE outbox_dlq, outbox_events, order_items, orders, cart_items, user_profiles, users, products RESTART IDENTITY CASCADE"

// NewSQLite returns a client over a fresh file-backed sqlite database with the
// embedded schema applied. The file lives in t.TempDir.
func NewSQLite(t testing.TB) *db.Client {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "storefront.db") + "?_busy_timeout=5000&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), quietConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.Up(context.Background(), sqlDB, db.DialectSQLite); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db.NewFromConn(conn)
}

// NewPostgres returns a client over the database named by STOREFRONT_TEST_DB_DSN,
// migrated and emptied. The test is skipped when the variable is unset.
func NewPostgres(t testing.TB) *db.Client {
	t.Helper()

	dsn := os.Getenv(EnvPostgresDSN)
	if dsn == "" {
		t.Skipf("%s is not set", EnvPostgresDSN)
	}

	conn, err := gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), quietConfig())
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("postgres handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.Up(context.Background(), sqlDB, db.DialectPostgres); err != nil {
		t.Fatalf("migrate postgres: %v", err)
	}
	if err := conn.Exec(truncateTables).Error; err != nil {
		t.Fatalf("truncate postgres: %v", err)
	}
	return db.NewFromConn(conn)
}

// Backends runs fn once per available backend.
func Backends(t *testing.T, fn func(t *testing.T, client *db.Client)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) {
		fn(t, NewSQLite(t))
	})
	t.Run("postgres", func(t *testing.T) {
		fn(t, NewPostgres(t))
	})
}

func quietConfig() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
	}
}
