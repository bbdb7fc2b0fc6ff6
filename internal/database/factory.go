package database

import (
	"fmt"
	"os"
	"path/filepath"

	"assetrepo/internal/config"
	"assetrepo/internal/repository"
)

// HistoryFileName is the sqlite file created inside DatabaseConfig.DataDir.
const HistoryFileName = "history.db"

// NewDatabaseFromConfig creates a History implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock repository.Clock) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, HistoryFileName), clock)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
