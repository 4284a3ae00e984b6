package database

import (
	"io"
	"log/slog"
	"testing"

	"pollblog-backend/config"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory sqlite database private to tb.
func NewTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := Open(config.DBConfig{
		Driver: config.DriverSQLite,
		URL:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, false)
	if err != nil {
		tb.Fatalf("open test database: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)

	if err := Migrate(db, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		tb.Fatalf("migrate test database: %v", err)
	}
	tb.Cleanup(func() { _ = Close(db) })
	return db
}
