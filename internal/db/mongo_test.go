package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo("mongodb://bad:uri")
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestMongoStore_NilCollection(t *testing.T) {
	s := &MongoStore{Collection: nil}
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, models.ErrStorageFailure)
	assert.ErrorIs(t, s.Set(ctx, "k", []byte("v")), models.ErrStorageFailure)
	assert.ErrorIs(t, s.Delete(ctx, "k"), models.ErrStorageFailure)
	assert.NoError(t, s.Close(ctx))
}

// Integration test (requires running MongoDB)
func TestMongoStore_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
		return
	}
	s, err := NewMongoStore(uri, "test_fleet")
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
		return
	}
	defer s.Close(context.Background())
	require.NoError(t, s.Collection.Drop(context.Background()))

	exerciseStore(t, s)
}
