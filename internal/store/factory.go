package store

import (
	"fmt"

	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/config"
)

// NewStoreFromConfig creates the document Store selected by cfg.Type. For
// type "sqlite" the documents share the ledger's database, so ledger must
// also implement cemetery.Store.
func NewStoreFromConfig(cfg config.StorageConfig, dir string, ledger cemetery.Ledger, clock cemetery.Clock) (cemetery.Store, error) {
	switch cfg.Type {
	case "", "filesystem":
		fs, err := NewFileSystemStore(dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "memory":
		return NewMemoryStore(clock), nil
	case "sqlite":
		docs, ok := ledger.(cemetery.Store)
		if !ok {
			return nil, fmt.Errorf("sqlite storage requires a sqlite database")
		}
		return docs, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
