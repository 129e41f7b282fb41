// Package dbtest opens isolated in-memory SQLite databases for repository tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/meltedmeethas/storefront-backend/pkg/db"
	"github.com/meltedmeethas/storefront-backend/pkg/db/models"
)

// AllModels lists every table the service owns, in dependency order.
func AllModels() []any {
	return []any{
		&models.User{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.DeletedOrder{},
		&models.Coupon{},
		&models.Feedback{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// Open returns a fresh database named after the test with the given models
// migrated. With no models every table is created.
func Open(t testing.TB, tables ...any) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(tables) == 0 {
		tables = AllModels()
	}
	if err := conn.AutoMigrate(tables...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Client wraps Open in the service db client.
func Client(t testing.TB, tables ...any) *db.Client {
	t.Helper()
	return db.FromConn(Open(t, tables...))
}
