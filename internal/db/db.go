package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/medetbek/worklens/internal/models"
)

// Store is the durable local store for session and screenshot records.
// All components share one Store; sqlite serializes the writes.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite database at path and runs
// migrations. This is the only operation whose failure is fatal to the
// process.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet by default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{db: gdb}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// DefaultPath returns the path to the sqlite database under dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "worklens.db")
}

// migrate creates/updates the database schema. Schema changes are additive
// only: columns and indexes added after the first release are guarded by
// existence checks so re-running is always safe.
func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(
		&models.Session{},
		&models.Screenshot{},
	); err != nil {
		return err
	}

	m := s.db.Migrator()

	// task_ref and checksum arrived after the first schema version.
	if !m.HasColumn(&models.Session{}, "task_ref") {
		if err := m.AddColumn(&models.Session{}, "TaskRef"); err != nil {
			return err
		}
	}
	if !m.HasColumn(&models.Screenshot{}, "checksum") {
		if err := m.AddColumn(&models.Screenshot{}, "Checksum"); err != nil {
			return err
		}
	}

	// Covering index for the sync engine's unsynced scan.
	if err := s.db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_sessions_status_synced ON sessions(status, synced)",
	).Error; err != nil {
		return err
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
