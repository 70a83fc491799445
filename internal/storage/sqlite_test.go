package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStorage creates a migrated in-memory database. testutil depends on
// this package, so the storage tests build their own fixture.
func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// categoryID resolves a seeded category's id.
func categoryID(t *testing.T, store *SQLiteStorage, name string) int64 {
	t.Helper()

	cat, err := store.GetCategoryByName(context.Background(), name)
	require.NoError(t, err)
	require.NotNil(t, cat, "category %q not seeded", name)
	return cat.ID
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestMigrateSeedsDefaultCategories(t *testing.T) {
	store := newTestStorage(t)

	categories, err := store.GetCategories(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, categories)

	names := make(map[string]bool, len(categories))
	for _, cat := range categories {
		names[cat.Name] = true
	}
	for _, want := range []string{"Groceries", "Food & Dining", "Shopping", "Uncategorized"} {
		assert.True(t, names[want], "expected seeded category %q", want)
	}
}

func TestValidationRejectsNilAndEmpty(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.GetCategoryByName(ctx, "  ")
	assert.ErrorIs(t, err, ErrEmptyString)

	err = store.UpsertMerchantMapping(ctx, "", 1)
	assert.ErrorIs(t, err, ErrEmptyString)

	err = store.RecordFeedback(ctx, nil)
	assert.ErrorIs(t, err, ErrNilParameter)
}
