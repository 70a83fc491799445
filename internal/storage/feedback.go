package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ghigo/coinsort/internal/model"
)

// SaveClassification appends a classification result to the audit trail. The
// category is stored by id so a later rename never orphans the row; an
// unclassified result stores a null category.
func (s *SQLiteStorage) SaveClassification(ctx context.Context, itemID string, itemType model.ItemType, result model.ClassificationResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(itemID, "itemID"); err != nil {
		return err
	}

	var categoryID *int64
	if result.Category != "" {
		cat, err := s.GetCategoryByName(ctx, result.Category)
		if err != nil {
			return err
		}
		if cat != nil {
			categoryID = &cat.ID
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classifications (item_id, item_type, category_id, method,
			confidence, reasoning, rule_id, classified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, itemID, string(itemType), categoryID, string(result.Method),
		result.Confidence, result.Reasoning, result.RuleID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}

	return nil
}

// RecordFeedback logs a user correction for later consumption by the learner.
func (s *SQLiteStorage) RecordFeedback(ctx context.Context, record *model.FeedbackRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if err := validateString(record.ItemID, "record.ItemID"); err != nil {
		return err
	}
	if err := validateString(record.ActualCategory, "record.ActualCategory"); err != nil {
		return err
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (item_id, item_type, merchant, description,
			suggested_category, actual_category, method, confidence,
			processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`, record.ItemID, string(record.ItemType), record.Merchant,
		record.Description, record.SuggestedCategory, record.ActualCategory,
		string(record.Method), record.Confidence, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get feedback ID: %w", err)
	}
	record.ID = id

	return nil
}

// GetUnprocessedFeedback returns up to limit feedback records that have not
// yet been consumed by the learner, oldest first.
func (s *SQLiteStorage) GetUnprocessedFeedback(ctx context.Context, limit int) ([]model.FeedbackRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, item_type, merchant, description,
		       suggested_category, actual_category, method, confidence,
		       processed, created_at
		FROM feedback
		WHERE processed = 0
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.FeedbackRecord
	for rows.Next() {
		var record model.FeedbackRecord
		var itemType, method string
		if err := rows.Scan(&record.ID, &record.ItemID, &itemType,
			&record.Merchant, &record.Description, &record.SuggestedCategory,
			&record.ActualCategory, &method, &record.Confidence,
			&record.Processed, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback record: %w", err)
		}
		record.ItemType = model.ItemType(itemType)
		record.Method = model.Method(method)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback: %w", err)
	}

	return records, nil
}

// MarkFeedbackProcessed flags the given feedback records as consumed.
func (s *SQLiteStorage) MarkFeedbackProcessed(ctx context.Context, ids []int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE feedback SET processed = 1 WHERE id IN (%s)`, placeholders),
		args...)
	if err != nil {
		return fmt.Errorf("failed to mark feedback processed: %w", err)
	}

	return nil
}
