package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ghigo/coinsort/internal/model"
)

// GetMerchantMapping retrieves a merchant mapping by its key, or nil if none
// exists. Keys are matched case-insensitively.
func (s *SQLiteStorage) GetMerchantMapping(ctx context.Context, merchant string) (*model.MerchantMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return nil, err
	}

	var mapping model.MerchantMapping
	err := s.db.QueryRowContext(ctx, `
		SELECT merchant, category_id, usage_count, accuracy_rate, last_used
		FROM merchant_mappings
		WHERE merchant = ? COLLATE NOCASE
	`, strings.ToLower(merchant)).Scan(
		&mapping.Merchant,
		&mapping.CategoryID,
		&mapping.UsageCount,
		&mapping.AccuracyRate,
		&mapping.LastUsed,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant mapping: %w", err)
	}

	return &mapping, nil
}

// GetAllMerchantMappings retrieves every merchant mapping in insertion order.
// The fuzzy lookup depends on this ordering: the first qualifying hit wins.
func (s *SQLiteStorage) GetAllMerchantMappings(ctx context.Context) ([]model.MerchantMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT merchant, category_id, usage_count, accuracy_rate, last_used
		FROM merchant_mappings
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchant mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.MerchantMapping
	for rows.Next() {
		var mapping model.MerchantMapping
		if err := rows.Scan(&mapping.Merchant, &mapping.CategoryID,
			&mapping.UsageCount, &mapping.AccuracyRate, &mapping.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan merchant mapping: %w", err)
		}
		mappings = append(mappings, mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating merchant mappings: %w", err)
	}

	return mappings, nil
}

// UpsertMerchantMapping inserts a merchant mapping or, on conflict, bumps the
// usage count and adopts the new category (last write wins). The upsert is a
// single statement so it is safe under concurrent writers.
func (s *SQLiteStorage) UpsertMerchantMapping(ctx context.Context, merchant string, categoryID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchant_mappings (merchant, category_id, usage_count, last_used)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(merchant) DO UPDATE SET
			category_id = excluded.category_id,
			usage_count = usage_count + 1,
			last_used = excluded.last_used
	`, strings.ToLower(merchant), categoryID)
	if err != nil {
		return fmt.Errorf("failed to upsert merchant mapping: %w", err)
	}

	return nil
}
