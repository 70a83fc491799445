// Package taxonomy translates foreign category vocabularies (bank
// aggregator taxonomies, retailer category strings) into registry categories.
package taxonomy

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ghigo/coinsort/internal/model"
)

// Confidence tiers. Approval status strictly gates which tier applies: a
// human-approved mapping outranks the keyword heuristic's suggestion.
const (
	ApprovedConfidence  = 70
	HeuristicConfidence = 50
)

// Source is the slice of the persistence contract the mapper consumes.
type Source interface {
	GetExternalMapping(ctx context.Context, externalCategory, source string) (*model.ExternalMapping, error)
	UpsertExternalMapping(ctx context.Context, mapping *model.ExternalMapping) error
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
}

// Resolution is a successful taxonomy translation.
type Resolution struct {
	CategoryName string
	Method       model.Method
	CategoryID   int64
	Confidence   int
}

// Mapper resolves external category values against the mapping table,
// queueing unseen values for human review.
type Mapper struct {
	src Source
}

// NewMapper creates a taxonomy mapper backed by the given storage.
func NewMapper(src Source) *Mapper {
	return &Mapper{src: src}
}

// Resolve translates one external category value. Approved mappings resolve
// at the approved tier; unmapped values are known to carry no signal and
// resolve to nothing. Any other state (pending, rejected, never seen) yields
// the keyword heuristic's suggestion at the lower tier, creating a pending
// review entry for unseen values as a side effect.
func (m *Mapper) Resolve(ctx context.Context, external, source string) (*Resolution, error) {
	if external == "" {
		return nil, nil
	}

	mapping, err := m.src.GetExternalMapping(ctx, external, source)
	if err != nil {
		return nil, err
	}

	if mapping != nil {
		switch mapping.Status {
		case model.MappingApproved:
			if mapping.UserCategoryID == nil {
				return nil, nil
			}
			cat, err := m.src.GetCategoryByID(ctx, *mapping.UserCategoryID)
			if err != nil {
				return nil, err
			}
			// The category may have been deleted since the mapping was
			// approved; that is a miss, not a failure.
			if cat == nil || !cat.IsActive {
				return nil, nil
			}
			return &Resolution{
				CategoryID:   cat.ID,
				CategoryName: cat.Name,
				Confidence:   ApprovedConfidence,
				Method:       model.MethodTaxonomyApproved,
			}, nil
		case model.MappingUnmapped:
			return nil, nil
		case model.MappingRejected:
			return m.suggest(ctx, external)
		case model.MappingPending:
			return m.suggest(ctx, external)
		}
		return nil, nil
	}

	// Never seen: queue it for review, carrying the heuristic's suggestion
	// so the reviewer starts from something.
	suggestion, err := m.suggest(ctx, external)
	if err != nil {
		return nil, err
	}

	pending := &model.ExternalMapping{
		ExternalCategory: external,
		Source:           source,
		Status:           model.MappingPending,
	}
	if suggestion != nil {
		pending.UserCategoryID = &suggestion.CategoryID
		pending.Confidence = HeuristicConfidence
	}
	if err := m.src.UpsertExternalMapping(ctx, pending); err != nil {
		return nil, err
	}

	slog.Info("queued external category for review",
		"external_category", external,
		"source", source,
		"suggested", suggestion != nil)

	return suggestion, nil
}

func (m *Mapper) suggest(ctx context.Context, external string) (*Resolution, error) {
	name, ok := SuggestCategory(external)
	if !ok {
		return nil, nil
	}

	cat, err := m.src.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, nil
	}

	return &Resolution{
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Confidence:   HeuristicConfidence,
		Method:       model.MethodTaxonomyHeuristic,
	}, nil
}

// keywordCategories maps substrings of foreign category values to registry
// category names. Order matters: earlier entries win when several keywords
// appear in one value.
var keywordCategories = []struct {
	keywords []string
	category string
}{
	{[]string{"grocery", "groceries", "supermarket"}, "Groceries"},
	{[]string{"restaurant", "dining", "coffee", "fast_food", "fast food", "cafe", "food_and_drink", "food and drink"}, "Food & Dining"},
	{[]string{"fuel", "gas", "service_station", "service station", "transportation", "taxi", "rideshare", "parking", "transit", "automotive"}, "Transportation"},
	{[]string{"streaming", "entertainment", "recreation", "music", "video game", "games"}, "Entertainment"},
	{[]string{"utilities", "utility", "telecommunication", "internet", "phone", "rent", "insurance", "loan"}, "Bills & Utilities"},
	{[]string{"pharmac", "medical", "health", "fitness", "gym", "dental"}, "Health & Fitness"},
	{[]string{"airline", "airlines", "hotel", "lodging", "travel", "vacation"}, "Travel"},
	{[]string{"home_improvement", "home improvement", "hardware", "furniture", "garden"}, "Home"},
	{[]string{"payroll", "salary", "income", "deposit"}, "Income"},
	{[]string{"electronics", "merchandise", "shopping", "retail", "clothing", "apparel", "department store", "general_merchandise", "general merchandise"}, "Shopping"},
}

// SuggestCategory maps a foreign category value to a registry category name
// through the fixed keyword table. The same table serves two tiers: the
// mapper's auto-suggestions and the purchased-item keyword stage.
func SuggestCategory(external string) (string, bool) {
	lowered := strings.ToLower(external)
	for _, entry := range keywordCategories {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.category, true
			}
		}
	}
	return "", false
}
