package common

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ConnectAnalyticsDb opens the SQLite database holding post views. An empty
// path means analytics is disabled and yields a nil *gorm.DB.
func ConnectAnalyticsDb(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, nil
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create analytics db directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open analytics db %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("analytics db handle: %w", err)
	}
	// sqlite allows a single writer; one connection also keeps :memory: coherent
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
