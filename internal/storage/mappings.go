package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ghigo/coinsort/internal/model"
)

// GetExternalMapping retrieves the mapping for an external category value
// from the given source, or nil if none has been recorded yet.
func (s *SQLiteStorage) GetExternalMapping(ctx context.Context, externalCategory, source string) (*model.ExternalMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(externalCategory, "externalCategory"); err != nil {
		return nil, err
	}
	if err := validateString(source, "source"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_category, source, user_category_id, status,
		       confidence, created_at, updated_at
		FROM external_mappings
		WHERE external_category = ? AND source = ?
	`, externalCategory, source)

	mapping, err := scanExternalMapping(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get external mapping: %w", err)
	}
	return mapping, nil
}

// UpsertExternalMapping inserts or updates an external taxonomy mapping. On
// conflict the review fields (status, category, confidence) are replaced,
// which is how approval and rejection are persisted.
func (s *SQLiteStorage) UpsertExternalMapping(ctx context.Context, mapping *model.ExternalMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExternalMapping(mapping); err != nil {
		return err
	}

	now := time.Now()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	mapping.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO external_mappings (external_category, source, user_category_id,
			status, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_category, source) DO UPDATE SET
			user_category_id = excluded.user_category_id,
			status = excluded.status,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
	`, mapping.ExternalCategory, mapping.Source, mapping.UserCategoryID,
		string(mapping.Status), mapping.Confidence, mapping.CreatedAt, mapping.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert external mapping: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM external_mappings WHERE external_category = ? AND source = ?`,
		mapping.ExternalCategory, mapping.Source).Scan(&mapping.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve external mapping id: %w", err)
	}

	return nil
}

// GetExternalMappingsByStatus returns every mapping in the given review
// state, oldest first. Used by the review CLI to list pending values.
func (s *SQLiteStorage) GetExternalMappingsByStatus(ctx context.Context, status model.MappingStatus) ([]model.ExternalMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidMapping, status)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_category, source, user_category_id, status,
		       confidence, created_at, updated_at
		FROM external_mappings
		WHERE status = ?
		ORDER BY created_at ASC, id ASC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query external mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.ExternalMapping
	for rows.Next() {
		mapping, err := scanExternalMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan external mapping: %w", err)
		}
		mappings = append(mappings, *mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating external mappings: %w", err)
	}

	return mappings, nil
}

type mappingScanner interface {
	Scan(dest ...any) error
}

func scanExternalMapping(row mappingScanner) (*model.ExternalMapping, error) {
	var mapping model.ExternalMapping
	var status string
	var userCategoryID sql.NullInt64

	err := row.Scan(&mapping.ID, &mapping.ExternalCategory, &mapping.Source,
		&userCategoryID, &status, &mapping.Confidence,
		&mapping.CreatedAt, &mapping.UpdatedAt)
	if err != nil {
		return nil, err
	}

	mapping.Status = model.MappingStatus(status)
	if userCategoryID.Valid {
		mapping.UserCategoryID = &userCategoryID.Int64
	}
	return &mapping, nil
}
