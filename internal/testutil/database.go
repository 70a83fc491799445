// Package testutil provides shared helpers for tests that need a real
// storage backend.
package testutil

import (
	"context"
	"testing"

	"github.com/ghigo/coinsort/internal/service"
	"github.com/ghigo/coinsort/internal/storage"
)

// TestDB wraps an in-memory storage instance for tests.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database. The default category
// seed from the migrations is applied, so the standard category names are
// available immediately. Cleanup is registered automatically.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// CategoryID returns the id of a seeded category, failing the test when the
// category does not exist.
func (db *TestDB) CategoryID(name string) int64 {
	db.t.Helper()

	cat, err := db.Storage.GetCategoryByName(context.Background(), name)
	if err != nil {
		db.t.Fatalf("failed to look up category %q: %v", name, err)
	}
	if cat == nil {
		db.t.Fatalf("category %q not found", name)
	}
	return cat.ID
}
