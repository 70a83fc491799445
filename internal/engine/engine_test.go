package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghigo/coinsort/internal/llm"
	"github.com/ghigo/coinsort/internal/memory"
	"github.com/ghigo/coinsort/internal/model"
	"github.com/ghigo/coinsort/internal/rules"
	"github.com/ghigo/coinsort/internal/taxonomy"
	"github.com/ghigo/coinsort/internal/testutil"
)

// stubAI is a canned AIClassifier for cascade tests.
type stubAI struct {
	suggestion *llm.Suggestion
	calls      int
}

func (s *stubAI) Classify(_ context.Context, _ string, _ float64, _ []model.Category) *llm.Suggestion {
	s.calls++
	return s.suggestion
}

type fixture struct {
	db     *testutil.TestDB
	engine *Engine
	ai     *stubAI
	store  *rules.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	mem := memory.New(db.Storage)
	ruleStore := rules.NewStore()
	mapper := taxonomy.NewMapper(db.Storage)
	ai := &stubAI{}

	return &fixture{
		db:     db,
		engine: New(db.Storage, mem, ruleStore, mapper, ai),
		ai:     ai,
		store:  ruleStore,
	}
}

func (f *fixture) addRule(t *testing.T, pattern string, matchType model.MatchType, category string) {
	t.Helper()

	rule := &model.Rule{
		Pattern:    pattern,
		MatchType:  matchType,
		CategoryID: f.db.CategoryID(category),
		Enabled:    true,
		Source:     model.RuleSourceUser,
	}
	require.NoError(t, f.db.Storage.UpsertRule(context.Background(), rule))
	require.NoError(t, f.store.Load(context.Background(), f.db.Storage))
}

func TestRegexRuleMatchLearnsMerchant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRule(t, "walmart|wal-mart", model.MatchRegex, "Groceries")

	got := f.engine.ClassifyTransaction(ctx, model.Transaction{
		ID:           "t1",
		MerchantName: "WALMART #1234",
		Description:  "WALMART #1234 PURCHASE",
	})

	assert.Equal(t, "Groceries", got.Category)
	assert.Equal(t, model.ConfidenceRule, got.Confidence)
	assert.Equal(t, model.MethodRule, got.Method)
	require.NotNil(t, got.RuleID)

	// The rule hit is written back into merchant memory.
	mapping, err := f.db.Storage.GetMerchantMapping(ctx, "walmart #1234")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, f.db.CategoryID("Groceries"), mapping.CategoryID)
}

func TestExactMerchantShortCircuits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	groceries := f.db.CategoryID("Groceries")
	require.NoError(t, f.db.Storage.UpsertMerchantMapping(ctx, "trader joes #42", groceries))

	// A conflicting rule exists, but the memory stage wins by priority.
	f.addRule(t, "trader", model.MatchPartial, "Travel")

	got := f.engine.ClassifyTransaction(ctx, model.Transaction{
		ID:           "t2",
		MerchantName: "Trader Joes #42",
		Description:  "TRADER JOES #42 POS",
	})

	assert.Equal(t, "Groceries", got.Category)
	assert.Equal(t, model.ConfidenceMerchantExact, got.Confidence)
	assert.Equal(t, model.MethodMerchantExact, got.Method)
}

func TestFuzzyMerchantMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dining := f.db.CategoryID("Food & Dining")
	require.NoError(t, f.db.Storage.UpsertMerchantMapping(ctx, "starbucks store #5500", dining))

	got := f.engine.ClassifyTransaction(ctx, model.Transaction{
		ID:           "t3",
		MerchantName: "STARBUCKS STORE #5521",
		Description:  "STARBUCKS STORE #5521 SEATTLE WA",
	})

	assert.Equal(t, "Food & Dining", got.Category)
	assert.Equal(t, model.ConfidenceMerchantFuzzy, got.Confidence)
	assert.Equal(t, model.MethodMerchantFuzzy, got.Method)

	// The near-match is learned under the new merchant string.
	mapping, err := f.db.Storage.GetMerchantMapping(ctx, "starbucks store #5521")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, dining, mapping.CategoryID)
}

func TestFuzzyBelowThresholdFallsThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Storage.UpsertMerchantMapping(ctx, "whole foods market", f.db.CategoryID("Groceries")))

	got := f.engine.ClassifyTransaction(ctx, model.Transaction{
		ID:           "t4",
		MerchantName: "Shell Oil 57442",
		Description:  "SHELL OIL 57442",
	})

	assert.Equal(t, "", got.Category)
	assert.Equal(t, 0, got.Confidence)
	assert.Equal(t, model.MethodNone, got.Method)
}

func TestForeignTaxonomyPrefersDetailedValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Approve the detailed value.
	transport := f.db.CategoryID("Transportation")
	require.NoError(t, f.db.Storage.UpsertExternalMapping(ctx, &model.ExternalMapping{
		ExternalCategory: "TRANSPORTATION_GAS",
		Source:           "plaid",
		Status:           model.MappingApproved,
		UserCategoryID:   &transport,
	}))

	got := f.engine.ClassifyTransaction(ctx, model.Transaction{
		ID:          "t5",
		Description: "SHELL SERVICE STATION",
		Source:      "plaid",
		ForeignTaxonomy: &model.ForeignTaxonomy{
			Primary:  "TRANSPORTATION",
			Detailed: "TRANSPORTATION_GAS",
		},
	})

	assert.Equal(t, "Transportation", got.Category)
	assert.Equal(t, taxonomy.ApprovedConfidence, got.Confidence)
	assert.Equal(t, model.MethodTaxonomyApproved, got.Method)
}

func TestUnseenForeignTaxonomyQueuesPendingAndSuggests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := f.engine.ClassifyTransaction(ctx, model.Transaction{
		ID:          "t6",
		Description: "SOME COFFEE SHOP",
		Source:      "plaid",
		ForeignTaxonomy: &model.ForeignTaxonomy{
			Primary:  "FOOD_AND_DRINK",
			Detailed: "FOOD_AND_DRINK_COFFEE",
		},
	})

	// The heuristic suggestion applies at the lower tier.
	assert.Equal(t, "Food & Dining", got.Category)
	assert.Equal(t, taxonomy.HeuristicConfidence, got.Confidence)
	assert.Equal(t, model.MethodTaxonomyHeuristic, got.Method)

	// A pending review entry now exists and is not auto-applied at the
	// approved tier on the next record.
	mapping, err := f.db.Storage.GetExternalMapping(ctx, "FOOD_AND_DRINK_COFFEE", "plaid")
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, model.MappingPending, mapping.Status)

	again := f.engine.ClassifyTransaction(ctx, model.Transaction{
		ID:          "t7",
		Description: "SOME COFFEE SHOP",
		Source:      "plaid",
		ForeignTaxonomy: &model.ForeignTaxonomy{
			Detailed: "FOOD_AND_DRINK_COFFEE",
		},
	})
	assert.Equal(t, taxonomy.HeuristicConfidence, again.Confidence,
		"a pending mapping must not resolve at the approved tier")
}

func TestLegacyTaxonomyMostSpecificFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	travel := f.db.CategoryID("Travel")
	require.NoError(t, f.db.Storage.UpsertExternalMapping(ctx, &model.ExternalMapping{
		ExternalCategory: "Airlines and Aviation Services",
		Source:           "plaid",
		Status:           model.MappingApproved,
		UserCategoryID:   &travel,
	}))

	got := f.engine.ClassifyTransaction(ctx, model.Transaction{
		ID:             "t8",
		Description:    "UNITED AIRLINES TICKET",
		Source:         "plaid",
		LegacyCategory: []string{"Travel", "Airlines and Aviation Services"},
	})

	assert.Equal(t, "Travel", got.Category)
	assert.Equal(t, taxonomy.ApprovedConfidence, got.Confidence)
}

func TestMalformedRegexRuleNeverAbortsCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A malformed regex rule sits in the store alongside a good rule.
	bad := &model.Rule{
		Pattern:    "[unclosed",
		MatchType:  model.MatchRegex,
		CategoryID: f.db.CategoryID("Shopping"),
		Enabled:    true,
		Source:     model.RuleSourceUser,
	}
	require.NoError(t, f.db.Storage.UpsertRule(ctx, bad))
	f.addRule(t, "netflix", model.MatchPartial, "Entertainment")

	got := f.engine.ClassifyTransaction(ctx, model.Transaction{
		ID:           "t9",
		MerchantName: "NETFLIX.COM",
		Description:  "NETFLIX.COM SUBSCRIPTION",
	})

	assert.Equal(t, "Entertainment", got.Category)
}

func TestClassifyNeverRaisesOnAdversarialInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inputs := []model.Transaction{
		{ID: "e1"},
		{ID: "e2", Description: ""},
		{ID: "e3", MerchantName: "", Description: "", LegacyCategory: []string{""}},
		{ID: "e4", ForeignTaxonomy: &model.ForeignTaxonomy{}},
	}

	for _, txn := range inputs {
		got := f.engine.ClassifyTransaction(ctx, txn)
		assert.Equal(t, "", got.Category)
		assert.Equal(t, 0, got.Confidence)
	}
}

func TestItemIdentifierRuleShortCircuits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ai.suggestion = &llm.Suggestion{Category: "Shopping", Confidence: 90}
	f.addRule(t, "B00TSUGXKE", model.MatchExact, "Entertainment")

	got := f.engine.ClassifyItem(ctx, model.PurchasedItem{
		ID:         "i2",
		ExternalID: "b00tsugxke",
		Title:      "Catan Board Game",
	})

	assert.Equal(t, "Entertainment", got.Category)
	assert.Equal(t, model.ConfidenceIdentifierRule, got.Confidence)
	assert.Equal(t, model.MethodRule, got.Method)
	require.NotNil(t, got.RuleID)
	assert.Zero(t, f.ai.calls)
}

func TestItemAISuggestionAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ai.suggestion = &llm.Suggestion{
		Category:   "Entertainment",
		Confidence: 72,
		Reasoning:  "board games are entertainment",
	}

	got := f.engine.ClassifyItem(ctx, model.PurchasedItem{
		ID:    "i3",
		Title: "Catan Board Game",
		Price: 44.99,
	})

	assert.Equal(t, "Entertainment", got.Category)
	assert.Equal(t, 72, got.Confidence)
	assert.Equal(t, model.MethodAI, got.Method)
	assert.Equal(t, 1, f.ai.calls)
}

func TestItemKeywordStageWhenAIUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// No rules match and the model abstains; the retailer's own category
	// string still carries a usable keyword.
	got := f.engine.ClassifyItem(ctx, model.PurchasedItem{
		ID:              "i4",
		Title:           "AmazonBasics USB-C Cable",
		ForeignCategory: "Electronics",
	})

	assert.Equal(t, "Shopping", got.Category)
	assert.Equal(t, model.ConfidenceKeyword, got.Confidence)
	assert.Equal(t, model.MethodKeyword, got.Method)
	assert.Equal(t, 1, f.ai.calls)
}

func TestItemWeakAISuggestionFallsToFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Below the acceptance bar the AI answer is discarded, and with no
	// keyword match the cascade lands in the general fallback bucket.
	f.ai.suggestion = &llm.Suggestion{Category: "Home", Confidence: 35}

	got := f.engine.ClassifyItem(ctx, model.PurchasedItem{
		ID:              "i5",
		Title:           "Handmade Soap Bar",
		ForeignCategory: "Artisan Goods",
	})

	assert.Equal(t, "Shopping", got.Category)
	assert.Equal(t, model.ConfidenceFallback, got.Confidence)
	assert.Equal(t, model.MethodFallback, got.Method)
}

func TestItemUncategorizedWhenFallbackBucketMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Storage.DeleteCategory(ctx, f.db.CategoryID("Shopping")))

	got := f.engine.ClassifyItem(ctx, model.PurchasedItem{
		ID:    "i6",
		Title: "Handmade Soap Bar",
	})

	assert.Equal(t, "Uncategorized", got.Category)
	assert.Equal(t, model.ConfidenceUncategorized, got.Confidence)
	assert.Equal(t, model.MethodUncategorized, got.Method)
}

func TestPriorityDominatesRawConfidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// AI would answer with a high score, but the title rule matches first
	// and the cascade short-circuits before reaching it.
	f.ai.suggestion = &llm.Suggestion{Category: "Entertainment", Confidence: 95}
	f.addRule(t, "cable", model.MatchPartial, "Shopping")

	got := f.engine.ClassifyItem(ctx, model.PurchasedItem{
		ID:    "i1",
		Title: "AmazonBasics USB-C Cable",
	})

	assert.Equal(t, "Shopping", got.Category)
	assert.Equal(t, model.ConfidenceTitleRule, got.Confidence)
	assert.Zero(t, f.ai.calls, "the AI stage must not run once an earlier stage accepted")
}
