// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"ge-tracker/internal/config"
	"ge-tracker/internal/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var seq atomic.Int64

// New returns a migrated, isolated sqlite database that is closed when the
// test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver:   "sqlite",
		URL:      fmt.Sprintf("file:dbtest%d?mode=memory&cache=shared", seq.Add(1)),
		LogLevel: "silent",
	}
	db, err := database.Initialize(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
