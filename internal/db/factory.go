package db

import (
	"fmt"

	"github.com/ukydev/fleet-maintenance/internal/config"
)

// NewStoreFromConfig creates a Backend based on the store config type.
func NewStoreFromConfig(cfg config.StoreConfig) (Backend, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(), nil
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path required for sqlite store")
		}
		return NewSQLiteStore(cfg.SQLitePath)
	case "mongo":
		if cfg.MongoDB == "" {
			return nil, fmt.Errorf("database name required for mongo store")
		}
		return NewMongoStore(cfg.MongoURI, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
