package database

import (
	"fmt"
	"os"
	"path/filepath"

	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/config"
)

// NewDatabaseFromConfig opens the ledger selected by cfg.Type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string, clock cemetery.Clock) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "", "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, hostID+".db"), clock)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
