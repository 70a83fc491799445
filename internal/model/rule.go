package model

import "time"

// MatchType determines how a rule pattern is tested against a record.
type MatchType string

const (
	// MatchExact requires case-insensitive full-string equality.
	MatchExact MatchType = "exact"
	// MatchPartial requires case-insensitive substring containment.
	MatchPartial MatchType = "partial"
	// MatchRegex compiles the pattern as a case-insensitive regular expression.
	MatchRegex MatchType = "regex"
)

// Valid reports whether the match type is one of the known variants.
func (m MatchType) Valid() bool {
	switch m {
	case MatchExact, MatchPartial, MatchRegex:
		return true
	}
	return false
}

// RuleSource indicates how a rule came to exist.
type RuleSource string

const (
	// RuleSourceUser indicates a rule created directly by a user, either by
	// hand or through a single confirmed correction.
	RuleSourceUser RuleSource = "user"
	// RuleSourceLearning indicates a rule synthesized by batch retraining.
	RuleSourceLearning RuleSource = "ai_learning"
	// RuleSourceSeed indicates a rule imported from a default seed file.
	RuleSourceSeed RuleSource = "seed"
)

// Rule maps a pattern to a category. Accuracy counters track how often the
// rule's suggestion survived user review.
type Rule struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Pattern        string
	MatchType      MatchType
	Source         RuleSource
	ID             int64
	CategoryID     int64
	UsageCount     int
	CorrectCount   int
	IncorrectCount int
	AccuracyRate   float64
	Enabled        bool
}
