package engine

import (
	"context"

	"github.com/ghigo/coinsort/internal/model"
)

// ClassifyTransaction runs the bank-transaction cascade: merchant memory
// exact, user rules, merchant memory fuzzy, the hierarchical foreign
// taxonomy, then the legacy flat taxonomy. The stage that matches dictates
// the confidence tier; a later stage can never outrank an earlier one
// because the cascade short-circuits.
func (e *Engine) ClassifyTransaction(ctx context.Context, txn model.Transaction) model.ClassificationResult {
	stages := []stage{
		{name: "merchant_exact", run: func(ctx context.Context) (*model.ClassificationResult, error) {
			return e.merchantExactStage(ctx, txn)
		}},
		{name: "rule", run: func(ctx context.Context) (*model.ClassificationResult, error) {
			return e.ruleStage(ctx, txn)
		}},
		{name: "merchant_fuzzy", run: func(ctx context.Context) (*model.ClassificationResult, error) {
			return e.merchantFuzzyStage(ctx, txn)
		}},
		{name: "foreign_taxonomy", run: func(ctx context.Context) (*model.ClassificationResult, error) {
			return e.foreignTaxonomyStage(ctx, txn)
		}},
		{name: "legacy_taxonomy", run: func(ctx context.Context) (*model.ClassificationResult, error) {
			return e.legacyTaxonomyStage(ctx, txn)
		}},
	}

	return e.runCascade(ctx, stages)
}

// merchantExactStage consults the merchant memory. When no merchant name is
// available the raw description is tried instead, but that branch never
// writes back: a description is too noisy to reinforce.
func (e *Engine) merchantExactStage(ctx context.Context, txn model.Transaction) (*model.ClassificationResult, error) {
	key := txn.MerchantName
	writeBack := true
	if key == "" {
		key = txn.Description
		writeBack = false
	}
	if key == "" {
		return nil, nil
	}

	mapping, err := e.memory.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, nil
	}

	name, err := e.categoryName(ctx, mapping.CategoryID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	if writeBack {
		if err := e.memory.Upsert(ctx, key, mapping.CategoryID); err != nil {
			e.logger.Warn("failed to bump merchant mapping", "merchant", key, "error", err)
		}
	}

	return &model.ClassificationResult{
		Category:   name,
		Confidence: model.ConfidenceMerchantExact,
		Method:     model.MethodMerchantExact,
		Reasoning:  "known merchant",
	}, nil
}

// ruleStage tries the user-authored pattern rules against the merchant and
// description. A hit is written back into the merchant memory when a
// merchant name is present, so the next occurrence short-circuits at the
// exact stage.
func (e *Engine) ruleStage(ctx context.Context, txn model.Transaction) (*model.ClassificationResult, error) {
	rule := e.rules.Match(txn.MerchantName, txn.Description)
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

	if txn.MerchantName != "" {
		if err := e.memory.Upsert(ctx, txn.MerchantName, rule.CategoryID); err != nil {
			e.logger.Warn("failed to learn merchant from rule",
				"merchant", txn.MerchantName, "error", err)
		}
	}

	ruleID := rule.ID
	return &model.ClassificationResult{
		Category:   name,
		Confidence: model.ConfidenceRule,
		Method:     model.MethodRule,
		Reasoning:  "matched rule pattern " + rule.Pattern,
		RuleID:     &ruleID,
	}, nil
}

// merchantFuzzyStage scans the merchant memory for a near-match of the
// merchant (or description when merchant is absent). Write-back happens
// only for real merchant names.
func (e *Engine) merchantFuzzyStage(ctx context.Context, txn model.Transaction) (*model.ClassificationResult, error) {
	key := txn.SearchKey()
	if key == "" {
		return nil, nil
	}

	mapping, err := e.memory.FuzzyLookup(ctx, key, e.cfg.FuzzyThreshold)
	if err != nil {
		return nil, err
	}
	if mapping == nil {
		return nil, nil
	}

	name, err := e.categoryName(ctx, mapping.CategoryID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	if txn.MerchantName != "" {
		if err := e.memory.Upsert(ctx, txn.MerchantName, mapping.CategoryID); err != nil {
			e.logger.Warn("failed to learn merchant from fuzzy match",
				"merchant", txn.MerchantName, "error", err)
		}
	}

	return &model.ClassificationResult{
		Category:   name,
		Confidence: model.ConfidenceMerchantFuzzy,
		Method:     model.MethodMerchantFuzzy,
		Reasoning:  "similar to known merchant " + mapping.Merchant,
	}, nil
}

// foreignTaxonomyStage resolves the aggregator's hierarchical category,
// preferring the detailed value over the primary one.
func (e *Engine) foreignTaxonomyStage(ctx context.Context, txn model.Transaction) (*model.ClassificationResult, error) {
	if txn.ForeignTaxonomy == nil {
		return nil, nil
	}

	for _, value := range []string{txn.ForeignTaxonomy.Detailed, txn.ForeignTaxonomy.Primary} {
		if value == "" {
			continue
		}
		resolution, err := e.mapper.Resolve(ctx, value, txn.TaxonomySource())
		if err != nil {
			return nil, err
		}
		if resolution != nil {
			return &model.ClassificationResult{
				Category:   resolution.CategoryName,
				Confidence: resolution.Confidence,
				Method:     resolution.Method,
				Reasoning:  "external taxonomy value " + value,
			}, nil
		}
	}
	return nil, nil
}

// legacyTaxonomyStage resolves the source's flat category array. The array
// is ordered broadest first, so it is walked back to front.
func (e *Engine) legacyTaxonomyStage(ctx context.Context, txn model.Transaction) (*model.ClassificationResult, error) {
	for i := len(txn.LegacyCategory) - 1; i >= 0; i-- {
		value := txn.LegacyCategory[i]
		if value == "" {
			continue
		}
		resolution, err := e.mapper.Resolve(ctx, value, txn.TaxonomySource())
		if err != nil {
			return nil, err
		}
		if resolution != nil {
			return &model.ClassificationResult{
				Category:   resolution.CategoryName,
				Confidence: resolution.Confidence,
				Method:     resolution.Method,
				Reasoning:  "legacy taxonomy value " + value,
			}, nil
		}
	}
	return nil, nil
}
