package model

// Method indicates which cascade stage produced a classification.
type Method string

// Classification method constants.
const (
	MethodMerchantExact     Method = "merchant_exact"
	MethodRule              Method = "rule"
	MethodMerchantFuzzy     Method = "merchant_fuzzy"
	MethodTaxonomyApproved  Method = "taxonomy_approved"
	MethodTaxonomyHeuristic Method = "taxonomy_heuristic"
	MethodAI                Method = "ai"
	MethodKeyword           Method = "keyword"
	MethodFallback          Method = "fallback"
	MethodUncategorized     Method = "uncategorized"
	MethodNone              Method = "none"
)

// Classification confidence tiers. The tier is dictated by which stage
// matched, never by a stage's raw score. The taxonomy tiers live with the
// taxonomy mapper.
const (
	ConfidenceMerchantExact  = 95
	ConfidenceIdentifierRule = 95
	ConfidenceTitleRule      = 90
	ConfidenceRule           = 85
	ConfidenceMerchantFuzzy  = 75
	ConfidenceKeyword        = 70
	ConfidenceFallback       = 40
	ConfidenceUncategorized  = 10
)

// ClassificationResult is the single value every classification call
// produces. An unclassifiable record yields {Category: "", Confidence: 0,
// Method: MethodNone}; a classification never fails with an error.
type ClassificationResult struct {
	Category   string
	Method     Method
	Reasoning  string
	RuleID     *int64
	Confidence int
}

// Classified reports whether the cascade produced a usable category.
func (r ClassificationResult) Classified() bool {
	return r.Category != "" && r.Confidence > 0
}
