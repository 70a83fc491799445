package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghigo/coinsort/internal/model"
)

func TestExternalMappingReviewTransitions(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	id := categoryID(t, store, "Transportation")

	pending := &model.ExternalMapping{
		ExternalCategory: "TRANSPORTATION_GAS",
		Source:           "plaid",
		Status:           model.MappingPending,
	}
	require.NoError(t, store.UpsertExternalMapping(ctx, pending))
	require.NotZero(t, pending.ID)

	// Approving replaces the review fields on the same row.
	approved := &model.ExternalMapping{
		ExternalCategory: "TRANSPORTATION_GAS",
		Source:           "plaid",
		Status:           model.MappingApproved,
		UserCategoryID:   &id,
		Confidence:       70,
	}
	require.NoError(t, store.UpsertExternalMapping(ctx, approved))
	assert.Equal(t, pending.ID, approved.ID)

	got, err := store.GetExternalMapping(ctx, "TRANSPORTATION_GAS", "plaid")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.MappingApproved, got.Status)
	require.NotNil(t, got.UserCategoryID)
	assert.Equal(t, id, *got.UserCategoryID)
}

func TestExternalMappingsAreScopedBySource(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	id := categoryID(t, store, "Shopping")

	require.NoError(t, store.UpsertExternalMapping(ctx, &model.ExternalMapping{
		ExternalCategory: "GENERAL_MERCHANDISE",
		Source:           "plaid",
		Status:           model.MappingApproved,
		UserCategoryID:   &id,
	}))

	other, err := store.GetExternalMapping(ctx, "GENERAL_MERCHANDISE", "amazon")
	require.NoError(t, err)
	assert.Nil(t, other, "the same value from another source is a separate mapping")
}

func TestGetExternalMappingsByStatus(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	id := categoryID(t, store, "Travel")

	entries := []model.ExternalMapping{
		{ExternalCategory: "TRAVEL_FLIGHTS", Source: "plaid", Status: model.MappingApproved, UserCategoryID: &id},
		{ExternalCategory: "TRAVEL_LODGING", Source: "plaid", Status: model.MappingPending},
		{ExternalCategory: "OTHER_OTHER", Source: "plaid", Status: model.MappingPending},
	}
	for i := range entries {
		require.NoError(t, store.UpsertExternalMapping(ctx, &entries[i]))
	}

	pending, err := store.GetExternalMappingsByStatus(ctx, model.MappingPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	_, err = store.GetExternalMappingsByStatus(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidMapping)
}

func TestSaveClassificationRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	err := store.SaveClassification(ctx, "txn-1", model.ItemTypeTransaction, model.ClassificationResult{
		Category:   "Groceries",
		Confidence: 95,
		Method:     model.MethodMerchantExact,
		Reasoning:  "known merchant",
	})
	require.NoError(t, err)

	// Unclassified results are recorded too, with a null category.
	err = store.SaveClassification(ctx, "txn-2", model.ItemTypeTransaction, model.ClassificationResult{
		Method: model.MethodNone,
	})
	require.NoError(t, err)

	err = store.SaveClassification(ctx, "", model.ItemTypeTransaction, model.ClassificationResult{})
	assert.ErrorIs(t, err, ErrEmptyString)
}
