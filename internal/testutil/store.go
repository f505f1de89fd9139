package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// FailingStore wraps a MemoryStore and fails reads or writes on demand.
// Safe for concurrent use.
type FailingStore struct {
	*db.MemoryStore

	mu       sync.Mutex
	failGet  bool
	failSet  bool
	setCalls int
	// failSetOnKey, when non-empty, limits write failures to one key.
	failSetOnKey string
}

// NewFailingStore creates a FailingStore with no failures armed.
func NewFailingStore() *FailingStore {
	return &FailingStore{MemoryStore: db.NewMemoryStore()}
}

// FailReads makes every Get fail.
func (s *FailingStore) FailReads(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet = on
}

// FailWrites makes every Set and Delete fail.
func (s *FailingStore) FailWrites(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSet = on
	s.failSetOnKey = ""
}

// FailWritesTo makes Set and Delete fail for key only.
func (s *FailingStore) FailWritesTo(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSet = true
	s.failSetOnKey = key
}

// SetCalls reports how many Set calls were attempted.
func (s *FailingStore) SetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCalls
}

func (s *FailingStore) writeFails(key string) bool {
	return s.failSet && (s.failSetOnKey == "" || s.failSetOnKey == key)
}

func (s *FailingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("%w: store unavailable", models.ErrStorageFailure)
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *FailingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.setCalls++
	fail := s.writeFails(key)
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: store unavailable", models.ErrStorageFailure)
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *FailingStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	fail := s.writeFails(key)
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: store unavailable", models.ErrStorageFailure)
	}
	return s.MemoryStore.Delete(ctx, key)
}
