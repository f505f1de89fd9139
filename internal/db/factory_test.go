package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/config"
)

func TestNewStoreFromConfig_Memory(t *testing.T) {
	s, err := NewStoreFromConfig(config.StoreConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}

func TestNewStoreFromConfig_SQLite(t *testing.T) {
	s, err := NewStoreFromConfig(config.StoreConfig{Type: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	defer s.Close(context.Background())
	assert.IsType(t, &SQLiteStore{}, s)
}

func TestNewStoreFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StoreConfig
	}{
		{"unknown type", config.StoreConfig{Type: "redis"}},
		{"sqlite without path", config.StoreConfig{Type: "sqlite"}},
		{"mongo without database", config.StoreConfig{Type: "mongo", MongoURI: "mongodb://localhost:27017"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStoreFromConfig(tt.cfg)
			assert.Error(t, err)
		})
	}
}
