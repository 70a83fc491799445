package engine

import (
	"context"

	"github.com/ghigo/coinsort/internal/model"
	"github.com/ghigo/coinsort/internal/taxonomy"
)

// ClassifyItem runs the purchased-item cascade: external-identifier rule,
// title rule, AI, foreign-category keyword mapping, then the fixed fallback
// and uncategorized buckets. Unlike the transaction cascade, this one always
// terminates with some category.
func (e *Engine) ClassifyItem(ctx context.Context, item model.PurchasedItem) model.ClassificationResult {
	stages := []stage{
		{name: "identifier_rule", run: func(ctx context.Context) (*model.ClassificationResult, error) {
			return e.identifierRuleStage(ctx, item)
		}},
		{name: "title_rule", run: func(ctx context.Context) (*model.ClassificationResult, error) {
			return e.titleRuleStage(ctx, item)
		}},
		{name: "ai", run: func(ctx context.Context) (*model.ClassificationResult, error) {
			return e.aiStage(ctx, item)
		}},
		{name: "keyword", run: func(ctx context.Context) (*model.ClassificationResult, error) {
			return e.keywordStage(ctx, item)
		}},
		{name: "fallback", run: func(ctx context.Context) (*model.ClassificationResult, error) {
			return e.fixedCategoryStage(ctx, e.cfg.FallbackCategory,
				model.ConfidenceFallback, model.MethodFallback,
				"no signal, using general fallback")
		}},
		{name: "uncategorized", run: func(ctx context.Context) (*model.ClassificationResult, error) {
			return e.fixedCategoryStage(ctx, e.cfg.UncategorizedCategory,
				model.ConfidenceUncategorized, model.MethodUncategorized,
				"could not classify")
		}},
	}

	return e.runCascade(ctx, stages)
}

// identifierRuleStage matches the retailer's own item identifier against
// exact rules.
func (e *Engine) identifierRuleStage(ctx context.Context, item model.PurchasedItem) (*model.ClassificationResult, error) {
	rule := e.rules.MatchIdentifier(item.ExternalID)
	if rule == nil {
		return nil, nil
	}

	name, err := e.categoryName(ctx, rule.CategoryID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	ruleID := rule.ID
	return &model.ClassificationResult{
		Category:   name,
		Confidence: model.ConfidenceIdentifierRule,
		Method:     model.MethodRule,
		Reasoning:  "known item identifier",
		RuleID:     &ruleID,
	}, nil
}

// titleRuleStage matches pattern rules against the item title.
func (e *Engine) titleRuleStage(ctx context.Context, item model.PurchasedItem) (*model.ClassificationResult, error) {
	rule := e.rules.Match(item.Title, "")
	if rule == nil {
		return nil, nil
	}

	name, err := e.categoryName(ctx, rule.CategoryID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	ruleID := rule.ID
	return &model.ClassificationResult{
		Category:   name,
		Confidence: model.ConfidenceTitleRule,
		Method:     model.MethodRule,
		Reasoning:  "matched title pattern " + rule.Pattern,
		RuleID:     &ruleID,
	}, nil
}

// aiStage asks the model. The classifier already absorbs provider failures
// and rejects categories outside the allowed set, so a nil suggestion is an
// ordinary abstention.
func (e *Engine) aiStage(ctx context.Context, item model.PurchasedItem) (*model.ClassificationResult, error) {
	categories, err := e.storage.GetCategories(ctx)
	if err != nil {
		return nil, err
	}

	suggestion := e.ai.Classify(ctx, item.Title, item.Price, categories)
	if suggestion == nil || suggestion.Confidence < 50 {
		return nil, nil
	}

	return &model.ClassificationResult{
		Category:   suggestion.Category,
		Confidence: suggestion.Confidence,
		Method:     model.MethodAI,
		Reasoning:  suggestion.Reasoning,
	}, nil
}

// keywordStage maps the retailer's category string through the fixed
// keyword table.
func (e *Engine) keywordStage(ctx context.Context, item model.PurchasedItem) (*model.ClassificationResult, error) {
	if item.ForeignCategory == "" {
		return nil, nil
	}

	name, ok := taxonomy.SuggestCategory(item.ForeignCategory)
	if !ok {
		return nil, nil
	}

	cat, err := e.storage.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, nil
	}

	return &model.ClassificationResult{
		Category:   cat.Name,
		Confidence: model.ConfidenceKeyword,
		Method:     model.MethodKeyword,
		Reasoning:  "retailer category " + item.ForeignCategory,
	}, nil
}

// fixedCategoryStage accepts with a configured bucket category, abstaining
// only if that category does not exist in the registry.
func (e *Engine) fixedCategoryStage(ctx context.Context, name string, confidence int, method model.Method, reasoning string) (*model.ClassificationResult, error) {
	cat, err := e.storage.GetCategoryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, nil
	}

	return &model.ClassificationResult{
		Category:   cat.Name,
		Confidence: confidence,
		Method:     method,
		Reasoning:  reasoning,
	}, nil
}
