package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ghigo/coinsort/internal/common"
	"github.com/ghigo/coinsort/internal/model"
)

// GetRules returns rules ordered by accuracy rate descending, then usage
// count descending, then id, so more reliable rules are tried first and the
// ordering is stable across calls.
func (s *SQLiteStorage) GetRules(ctx context.Context, enabledOnly bool) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, pattern, match_type, category_id, enabled, source,
		       usage_count, correct_count, incorrect_count, accuracy_rate,
		       created_at, updated_at
		FROM rules`
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY accuracy_rate DESC, usage_count DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		var rule model.Rule
		var matchType, source string
		if err := rows.Scan(&rule.ID, &rule.Pattern, &matchType, &rule.CategoryID,
			&rule.Enabled, &source, &rule.UsageCount, &rule.CorrectCount,
			&rule.IncorrectCount, &rule.AccuracyRate, &rule.CreatedAt,
			&rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rule.MatchType = model.MatchType(matchType)
		rule.Source = model.RuleSource(source)
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// GetRuleByPattern returns the rule with the given pattern and category, or
// nil if none exists.
func (s *SQLiteStorage) GetRuleByPattern(ctx context.Context, pattern string, categoryID int64) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(pattern, "pattern"); err != nil {
		return nil, err
	}

	var rule model.Rule
	var matchType, source string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, pattern, match_type, category_id, enabled, source,
		       usage_count, correct_count, incorrect_count, accuracy_rate,
		       created_at, updated_at
		FROM rules
		WHERE pattern = ? AND category_id = ?
	`, pattern, categoryID).Scan(&rule.ID, &rule.Pattern, &matchType,
		&rule.CategoryID, &rule.Enabled, &source, &rule.UsageCount,
		&rule.CorrectCount, &rule.IncorrectCount, &rule.AccuracyRate,
		&rule.CreatedAt, &rule.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	rule.MatchType = model.MatchType(matchType)
	rule.Source = model.RuleSource(source)
	return &rule, nil
}

// UpsertRule inserts a rule or, on a (pattern, category) conflict, increments
// the existing row's counters instead of duplicating it. The inserted or
// updated row's id is written back to rule.ID.
func (s *SQLiteStorage) UpsertRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (pattern, match_type, category_id, enabled, source,
			usage_count, correct_count, incorrect_count, accuracy_rate,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pattern, category_id) DO UPDATE SET
			usage_count = usage_count + 1,
			correct_count = correct_count + 1,
			accuracy_rate = CAST(correct_count + 1 AS REAL) / (correct_count + 1 + incorrect_count),
			updated_at = excluded.updated_at
	`, rule.Pattern, string(rule.MatchType), rule.CategoryID, rule.Enabled,
		string(rule.Source), rule.UsageCount, rule.CorrectCount,
		rule.IncorrectCount, rule.AccuracyRate, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert rule: %w", err)
	}

	// Read back the canonical row id for callers that need it.
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM rules WHERE pattern = ? AND category_id = ?`,
		rule.Pattern, rule.CategoryID).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve rule id: %w", err)
	}

	return nil
}

// RecordRuleOutcome registers a confirmation or rejection of a rule's
// suggestion and recomputes its accuracy rate in the same statement, so
// concurrent outcomes never lose updates.
func (s *SQLiteStorage) RecordRuleOutcome(ctx context.Context, ruleID int64, correct bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var query string
	if correct {
		query = `
			UPDATE rules SET
				usage_count = usage_count + 1,
				correct_count = correct_count + 1,
				accuracy_rate = CAST(correct_count + 1 AS REAL) / (correct_count + 1 + incorrect_count),
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`
	} else {
		query = `
			UPDATE rules SET
				usage_count = usage_count + 1,
				incorrect_count = incorrect_count + 1,
				accuracy_rate = CAST(correct_count AS REAL) / (correct_count + incorrect_count + 1),
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`
	}

	result, err := s.db.ExecContext(ctx, query, ruleID)
	if err != nil {
		return fmt.Errorf("failed to record rule outcome: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rule outcome result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: rule %d", common.ErrNotFound, ruleID)
	}

	return nil
}
