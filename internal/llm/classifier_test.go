package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghigo/coinsort/internal/model"
)

// stubClient is a canned-response Client for classifier tests.
type stubClient struct {
	response    string
	err         error
	unavailable bool
	calls       int
}

func (s *stubClient) Generate(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubClient) Available(_ context.Context) bool {
	return !s.unavailable
}

func allowedCategories() []model.Category {
	return []model.Category{
		{ID: 1, Name: "Groceries"},
		{ID: 2, Name: "Food & Dining"},
		{ID: 3, Name: "Shopping"},
	}
}

func TestClassifyHappyPath(t *testing.T) {
	client := &stubClient{response: "CATEGORY: Groceries\nCONFIDENCE: 85\nREASONING: food store"}
	classifier := NewClassifier(client, nil)

	got := classifier.Classify(context.Background(), "WALMART #1234", 0, allowedCategories())
	require.NotNil(t, got)
	assert.Equal(t, "Groceries", got.Category)
	assert.Equal(t, 85, got.Confidence)
	assert.Equal(t, "food store", got.Reasoning)
}

func TestClassifyTypoRecovery(t *testing.T) {
	client := &stubClient{response: "CATEGORY: Grocerys\nCONFIDENCE: 80\nREASONING: typo"}
	classifier := NewClassifier(client, nil)

	got := classifier.Classify(context.Background(), "corner store", 0, allowedCategories())
	require.NotNil(t, got)
	assert.Equal(t, "Groceries", got.Category)
}

func TestClassifyConfidenceClipping(t *testing.T) {
	tests := []struct {
		name     string
		reported string
		want     int
	}{
		{name: "over-confident model is capped", reported: "100", want: 95},
		{name: "under-confident model is floored", reported: "20", want: 50},
		{name: "missing confidence parses to zero and is floored", reported: "garbage", want: 50},
		{name: "in-band value passes through", reported: "72", want: 72},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{response: "CATEGORY: Shopping\nCONFIDENCE: " + tt.reported + "\nREASONING: x"}
			classifier := NewClassifier(client, nil)

			got := classifier.Classify(context.Background(), "some item", 0, allowedCategories())
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Confidence)
		})
	}
}

func TestClassifyInventedCategoryRejected(t *testing.T) {
	client := &stubClient{response: "CATEGORY: Cryptocurrency\nCONFIDENCE: 90\nREASONING: made up"}
	classifier := NewClassifier(client, nil)

	got := classifier.Classify(context.Background(), "some item", 0, allowedCategories())
	assert.Nil(t, got, "a category outside the allowed set must not be returned")
}

func TestClassifyProviderFailuresYieldNoOpinion(t *testing.T) {
	t.Run("generate error", func(t *testing.T) {
		client := &stubClient{err: errors.New("connection refused")}
		got := NewClassifier(client, nil).Classify(context.Background(), "item", 0, allowedCategories())
		assert.Nil(t, got)
	})

	t.Run("provider unavailable skips the call entirely", func(t *testing.T) {
		client := &stubClient{unavailable: true, response: "CATEGORY: Shopping\nCONFIDENCE: 80"}
		got := NewClassifier(client, nil).Classify(context.Background(), "item", 0, allowedCategories())
		assert.Nil(t, got)
		assert.Zero(t, client.calls, "unavailable provider must not receive a generate call")
	})

	t.Run("unparseable response", func(t *testing.T) {
		client := &stubClient{response: "I refuse to answer in that format."}
		got := NewClassifier(client, nil).Classify(context.Background(), "item", 0, allowedCategories())
		assert.Nil(t, got)
	})
}

func TestClassifyEmptyInputs(t *testing.T) {
	client := &stubClient{response: "CATEGORY: Shopping\nCONFIDENCE: 80"}
	classifier := NewClassifier(client, nil)

	assert.Nil(t, classifier.Classify(context.Background(), "", 0, allowedCategories()))
	assert.Nil(t, classifier.Classify(context.Background(), "item", 0, nil))
}

func TestValidateCategory(t *testing.T) {
	cats := allowedCategories()

	tests := []struct {
		name      string
		suggested string
		want      string
	}{
		{name: "exact", suggested: "Groceries", want: "Groceries"},
		{name: "case-insensitive", suggested: "groceries", want: "Groceries"},
		{name: "decorated", suggested: "**Food & Dining**", want: "Food & Dining"},
		{name: "ampersand spelled out is contained", suggested: "Food Dining", want: "Food & Dining"},
		{name: "typo", suggested: "Grocerys", want: "Groceries"},
		{name: "invented", suggested: "Cryptocurrency", want: ""},
		{name: "empty", suggested: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validateCategory(tt.suggested, cats))
		})
	}
}
