// Package learning turns user corrections into pattern rules and merchant
// memory entries, closing the feedback loop around the cascade.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ghigo/coinsort/internal/memory"
	"github.com/ghigo/coinsort/internal/model"
	"github.com/ghigo/coinsort/internal/service"
)

// maxPatternTokens caps how many description tokens are considered for a
// learned pattern.
const maxPatternTokens = 3

// minRetrainCorrections is how many agreeing corrections a description
// needs before batch retraining promotes it into a rule.
const minRetrainCorrections = 2

// stopWords are tokens too generic to anchor a learned pattern.
var stopWords = map[string]struct{}{
	"with": {}, "from": {}, "this": {}, "that": {}, "your": {},
	"purchase": {}, "payment": {}, "order": {}, "online": {},
	"store": {}, "shop": {}, "card": {}, "debit": {}, "credit": {},
	"transaction": {}, "transfer": {}, "pos": {},
}

// Correction is one confirmed user override of a classification.
type Correction struct {
	ItemID            string
	ItemType          model.ItemType
	Merchant          string
	Description       string
	SuggestedCategory string
	ActualCategory    string
	Method            model.Method
	Confidence        int
}

// Learner consumes corrections and mutates the rule store and merchant
// memory. It never modifies existing data destructively: rules are deduped
// by (pattern, category) and merchant entries are last-write-wins upserts.
type Learner struct {
	storage service.Storage
	memory  *memory.Memory
	logger  *slog.Logger
}

// NewLearner creates a feedback learner.
func NewLearner(storage service.Storage, mem *memory.Memory) *Learner {
	return &Learner{
		storage: storage,
		memory:  mem,
		logger:  slog.Default(),
	}
}

// Learn processes one confirmed correction: it logs a feedback record,
// derives a partial-match rule from the description when one can be
// anchored, and always reinforces the merchant memory with the corrected
// category.
func (l *Learner) Learn(ctx context.Context, c Correction) error {
	if c.ActualCategory == "" {
		return fmt.Errorf("correction requires an actual category")
	}

	record := &model.FeedbackRecord{
		ItemID:            c.ItemID,
		ItemType:          c.ItemType,
		Merchant:          c.Merchant,
		Description:       c.Description,
		SuggestedCategory: c.SuggestedCategory,
		ActualCategory:    c.ActualCategory,
		Method:            c.Method,
		Confidence:        c.Confidence,
	}
	if err := l.storage.RecordFeedback(ctx, record); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	category, err := l.storage.GetOrCreateCategory(ctx, c.ActualCategory)
	if err != nil {
		return fmt.Errorf("failed to resolve category: %w", err)
	}

	if err := l.learnRule(ctx, c.Description, category.ID, model.RuleSourceUser); err != nil {
		return err
	}

	// The merchant memory always learns, even when no rule pattern could
	// be derived.
	key := c.Merchant
	if key == "" {
		key = c.Description
	}
	if key != "" {
		if err := l.memory.Upsert(ctx, key, category.ID); err != nil {
			return fmt.Errorf("failed to upsert merchant memory: %w", err)
		}
	}

	return nil
}

// learnRule derives a partial rule from the description's first significant
// token. An existing (pattern, category) rule has its stats reinforced
// instead of being duplicated.
func (l *Learner) learnRule(ctx context.Context, description string, categoryID int64, source model.RuleSource) error {
	tokens := PatternTokens(description)
	if len(tokens) == 0 {
		l.logger.Info("no pattern to learn", "description", description)
		return nil
	}

	pattern := tokens[0]

	existing, err := l.storage.GetRuleByPattern(ctx, pattern, categoryID)
	if err != nil {
		return fmt.Errorf("failed to look up rule: %w", err)
	}
	if existing != nil {
		if err := l.storage.RecordRuleOutcome(ctx, existing.ID, true); err != nil {
			return fmt.Errorf("failed to reinforce rule: %w", err)
		}
		l.logger.Debug("reinforced existing rule", "pattern", pattern, "rule_id", existing.ID)
		return nil
	}

	rule := &model.Rule{
		Pattern:      pattern,
		MatchType:    model.MatchPartial,
		CategoryID:   categoryID,
		Enabled:      true,
		Source:       source,
		UsageCount:   1,
		CorrectCount: 1,
		AccuracyRate: 1,
	}
	if err := l.storage.UpsertRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to create learned rule: %w", err)
	}

	l.logger.Info("learned new rule",
		"pattern", pattern,
		"category_id", categoryID,
		"source", source)
	return nil
}

// Retrain scans unprocessed feedback for descriptions corrected at least
// twice to the same category, promotes those into auto-generated rules, and
// marks the consumed records processed.
func (l *Learner) Retrain(ctx context.Context, limit int) (int, error) {
	records, err := l.storage.GetUnprocessedFeedback(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load feedback: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	type group struct {
		description string
		category    string
		count       int
	}
	groups := make(map[string]*group)
	for _, record := range records {
		if record.Description == "" {
			continue
		}
		key := strings.ToLower(record.Description) + "\x00" + strings.ToLower(record.ActualCategory)
		if g, ok := groups[key]; ok {
			g.count++
		} else {
			groups[key] = &group{
				description: record.Description,
				category:    record.ActualCategory,
				count:       1,
			}
		}
	}

	promoted := 0
	for _, g := range groups {
		if g.count < minRetrainCorrections {
			continue
		}
		category, err := l.storage.GetOrCreateCategory(ctx, g.category)
		if err != nil {
			return promoted, fmt.Errorf("failed to resolve category: %w", err)
		}
		if err := l.learnRule(ctx, g.description, category.ID, model.RuleSourceLearning); err != nil {
			return promoted, err
		}
		promoted++
	}

	ids := make([]int64, len(records))
	for i, record := range records {
		ids[i] = record.ID
	}
	if err := l.storage.MarkFeedbackProcessed(ctx, ids); err != nil {
		return promoted, fmt.Errorf("failed to mark feedback processed: %w", err)
	}

	l.logger.Info("retraining pass complete",
		"records", len(records),
		"rules_promoted", promoted)
	return promoted, nil
}

// PatternTokens extracts the tokens a learned pattern may anchor on: the
// first three description tokens longer than three characters that are not
// stop words.
func PatternTokens(description string) []string {
	var tokens []string
	for _, token := range strings.Fields(strings.ToLower(description)) {
		token = strings.Trim(token, ".,;:!?#*()[]'\"")
		if len(token) <= 3 {
			continue
		}
		if _, ok := stopWords[token]; ok {
			continue
		}
		tokens = append(tokens, token)
		if len(tokens) == maxPatternTokens {
			break
		}
	}
	return tokens
}
