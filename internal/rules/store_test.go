package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghigo/coinsort/internal/common"
	"github.com/ghigo/coinsort/internal/model"
)

type staticSource struct {
	rules []model.Rule
}

func (s *staticSource) GetRules(_ context.Context, _ bool) ([]model.Rule, error) {
	return s.rules, nil
}

func TestStoreMatchTypes(t *testing.T) {
	tests := []struct {
		name        string
		rule        model.Rule
		merchant    string
		description string
		wantMatch   bool
	}{
		{
			name:      "exact match ignores case",
			rule:      model.Rule{ID: 1, Pattern: "Netflix", MatchType: model.MatchExact, CategoryID: 1},
			merchant:  "NETFLIX",
			wantMatch: true,
		},
		{
			name:      "exact does not behave like substring",
			rule:      model.Rule{ID: 1, Pattern: "Netflix", MatchType: model.MatchExact, CategoryID: 1},
			merchant:  "NETFLIX.COM 4754",
			wantMatch: false,
		},
		{
			name:      "partial matches substring",
			rule:      model.Rule{ID: 1, Pattern: "netflix", MatchType: model.MatchPartial, CategoryID: 1},
			merchant:  "NETFLIX.COM 4754",
			wantMatch: true,
		},
		{
			name:        "partial matches description when merchant misses",
			rule:        model.Rule{ID: 1, Pattern: "grocery", MatchType: model.MatchPartial, CategoryID: 1},
			merchant:    "SQ *1234",
			description: "CORNER GROCERY STORE",
			wantMatch:   true,
		},
		{
			name:      "regex alternation",
			rule:      model.Rule{ID: 1, Pattern: "walmart|wal-mart", MatchType: model.MatchRegex, CategoryID: 1},
			merchant:  "WALMART #1234",
			wantMatch: true,
		},
		{
			name:      "regex is case-insensitive",
			rule:      model.Rule{ID: 1, Pattern: "^shell", MatchType: model.MatchRegex, CategoryID: 1},
			merchant:  "Shell Oil 57442",
			wantMatch: true,
		},
		{
			name:      "regex honors anchors",
			rule:      model.Rule{ID: 1, Pattern: "^shell$", MatchType: model.MatchRegex, CategoryID: 1},
			merchant:  "Shell Oil 57442",
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			require.NoError(t, store.Load(context.Background(), &staticSource{rules: []model.Rule{tt.rule}}))

			got := store.Match(tt.merchant, tt.description)
			if tt.wantMatch {
				require.NotNil(t, got)
				assert.Equal(t, tt.rule.ID, got.ID)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestStoreSkipsMalformedRegex(t *testing.T) {
	src := &staticSource{rules: []model.Rule{
		{ID: 1, Pattern: "[unclosed", MatchType: model.MatchRegex, CategoryID: 1},
		{ID: 2, Pattern: "walmart", MatchType: model.MatchPartial, CategoryID: 2},
	}}

	store := NewStore()
	require.NoError(t, store.Load(context.Background(), src))

	assert.Equal(t, 1, store.Len(), "malformed rule should be dropped at load")

	got := store.Match("WALMART #1234", "")
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

func TestStoreOrderPrefersReliableRules(t *testing.T) {
	// The source returns rules already in reliability order, as the storage
	// layer does; the store must preserve that order when matching.
	src := &staticSource{rules: []model.Rule{
		{ID: 7, Pattern: "amazon", MatchType: model.MatchPartial, CategoryID: 3, AccuracyRate: 0.95},
		{ID: 2, Pattern: "amazon prime", MatchType: model.MatchPartial, CategoryID: 9, AccuracyRate: 0.40},
	}}

	store := NewStore()
	require.NoError(t, store.Load(context.Background(), src))

	got := store.Match("AMAZON PRIME*2K4", "")
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
}

func TestValidatePattern(t *testing.T) {
	assert.NoError(t, ValidatePattern("walmart|wal-mart", model.MatchRegex))
	assert.NoError(t, ValidatePattern("[unclosed", model.MatchPartial),
		"non-regex patterns are opaque strings")

	err := ValidatePattern("[unclosed", model.MatchRegex)
	assert.ErrorIs(t, err, common.ErrInvalidPattern)
}

func TestStoreNoMatchReturnsNil(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Load(context.Background(), &staticSource{}))
	assert.Nil(t, store.Match("anything", "at all"))
}
