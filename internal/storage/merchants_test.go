package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerchantMappingKeysAreNormalized(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	id := categoryID(t, store, "Groceries")

	require.NoError(t, store.UpsertMerchantMapping(ctx, "Trader Joes #42", id))

	// Lookup succeeds regardless of case, and the stored key is lowercase.
	mapping, err := store.GetMerchantMapping(ctx, "TRADER JOES #42")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, "trader joes #42", mapping.Merchant)
	assert.Equal(t, id, mapping.CategoryID)
}

func TestUpsertMerchantMappingLastWriteWins(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	groceries := categoryID(t, store, "Groceries")
	shopping := categoryID(t, store, "Shopping")

	require.NoError(t, store.UpsertMerchantMapping(ctx, "costco", groceries))
	require.NoError(t, store.UpsertMerchantMapping(ctx, "COSTCO", shopping))

	mapping, err := store.GetMerchantMapping(ctx, "costco")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, shopping, mapping.CategoryID)
	assert.Equal(t, 2, mapping.UsageCount)
}

func TestGetAllMerchantMappingsPreservesInsertionOrder(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	id := categoryID(t, store, "Groceries")

	for _, merchant := range []string{"zeta mart", "alpha mart", "mid mart"} {
		require.NoError(t, store.UpsertMerchantMapping(ctx, merchant, id))
	}

	mappings, err := store.GetAllMerchantMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 3)
	assert.Equal(t, "zeta mart", mappings[0].Merchant)
	assert.Equal(t, "alpha mart", mappings[1].Merchant)
	assert.Equal(t, "mid mart", mappings[2].Merchant)
}

func TestGetMerchantMappingMissReturnsNil(t *testing.T) {
	store := newTestStorage(t)

	mapping, err := store.GetMerchantMapping(context.Background(), "never seen")
	require.NoError(t, err)
	assert.Nil(t, mapping)
}
