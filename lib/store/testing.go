package store

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestStore opens a migrated sqlite database in a temp dir that is removed
// when the test ends. It should only be called from tests.
func NewTestStore(t testing.TB) (*Store, *gorm.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bountywatch_test.sqlite")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	// sqlite allows one writer; serialise connections so concurrent tests
	// queue instead of failing with SQLITE_BUSY.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("test db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return New(db), db
}
