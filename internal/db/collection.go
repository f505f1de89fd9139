package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ukydev/fleet-maintenance/internal/models"
)

// Collection keys. Each key holds one whole JSON-encoded collection.
const (
	KeyReminders = "fleet/reminders"
	KeyForms     = "fleet/forms"
)

// Store defines the key-value operations the maintenance core persists through.
// Get returns (nil, nil) when the key is absent. Implementations wrap their
// failures with models.ErrStorageFailure.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Backend is a Store that owns a connection.
type Backend interface {
	Store
	Close(ctx context.Context) error
}

// LoadCollection reads and decodes the collection stored under key.
// An absent key yields an empty collection.
func LoadCollection[T any](ctx context.Context, s Store, key string) ([]T, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", models.ErrStorageFailure, key, err)
	}
	return items, nil
}

// SaveCollection encodes items and writes them under key, replacing the previous value.
func SaveCollection[T any](ctx context.Context, s Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", models.ErrStorageFailure, key, err)
	}
	return s.Set(ctx, key, data)
}
