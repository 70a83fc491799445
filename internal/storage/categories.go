package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ghigo/coinsort/internal/common"
	"github.com/ghigo/coinsort/internal/model"
)

// GetCategories returns all active categories, ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, description, type, parent_id, is_active, created_at
		FROM categories
		WHERE is_active = 1
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByName returns a category by its name, or nil if not found.
// Name matching is case-insensitive.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	return s.getCategoryByNameTx(ctx, s.db, name)
}

func (s *SQLiteStorage) getCategoryByNameTx(ctx context.Context, q queryable, name string) (*model.Category, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, description, type, parent_id, is_active, created_at
		FROM categories
		WHERE name = ? COLLATE NOCASE AND is_active = 1
	`, name)

	cat, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

// GetCategoryByID returns a category by its ID, or nil if not found.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, type, parent_id, is_active, created_at
		FROM categories
		WHERE id = ?
	`, id)

	cat, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

// GetOrCreateCategory returns the category with the given name, creating it
// as an expense category if it does not exist. Inactive categories are
// reactivated rather than duplicated.
func (s *SQLiteStorage) GetOrCreateCategory(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	existing, err := s.findCategoryAnyStatus(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.IsActive {
			if _, err := s.db.ExecContext(ctx,
				`UPDATE categories SET is_active = 1 WHERE id = ?`, existing.ID); err != nil {
				return nil, fmt.Errorf("failed to reactivate category: %w", err)
			}
			existing.IsActive = true
			slog.Info("reactivated existing category", "name", existing.Name)
		}
		return existing, nil
	}

	return s.CreateCategory(ctx, name, "", model.CategoryTypeExpense, nil)
}

func (s *SQLiteStorage) findCategoryAnyStatus(ctx context.Context, name string) (*model.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, type, parent_id, is_active, created_at
		FROM categories
		WHERE name = ? COLLATE NOCASE
	`, name)

	cat, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}
	return cat, nil
}

// CreateCategory creates a new category.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, description string, categoryType model.CategoryType, parentID *int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	if categoryType == "" {
		categoryType = model.CategoryTypeExpense
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, description, type, parent_id, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)
	`, name, description, string(categoryType), parentID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	slog.Info("created new category", "name", name, "id", id)
	return &model.Category{
		ID:          id,
		Name:        name,
		Description: description,
		Type:        categoryType,
		ParentID:    parentID,
		CreatedAt:   now,
		IsActive:    true,
	}, nil
}

// RenameCategory changes a category's display name in a single transaction.
// Every dependent table references categories by id, so readers resolve the
// new name on their next query and can never observe a partial rename.
func (s *SQLiteStorage) RenameCategory(ctx context.Context, id int64, newName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(newName, "newName"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Reject a rename that would collide with another category's name.
	var existingID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE name = ? COLLATE NOCASE AND id != ?`,
		newName, id).Scan(&existingID)
	if err == nil {
		return fmt.Errorf("%w: category %q", common.ErrDuplicateEntry, newName)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check category name: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ?`, newName, id)
	if err != nil {
		return fmt.Errorf("failed to rename category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rename result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: category %d", common.ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rename: %w", err)
	}

	slog.Info("renamed category", "id", id, "new_name", newName)
	return nil
}

// DeleteCategory deactivates a category and clears its reference from
// dependent rules and merchant mappings so later lookups treat them as
// misses rather than crashing on a dangling id.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET is_active = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to deactivate category: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE rules SET enabled = 0 WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("failed to disable dependent rules: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM merchant_mappings WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear dependent merchant mappings: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE external_mappings SET user_category_id = NULL, status = 'pending' WHERE user_category_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear dependent external mappings: %w", err)
	}

	return tx.Commit()
}

// categoryScanner matches both *sql.Row and *sql.Rows.
type categoryScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row categoryScanner) (*model.Category, error) {
	var cat model.Category
	var catType string
	var parentID sql.NullInt64

	err := row.Scan(&cat.ID, &cat.Name, &cat.Description, &catType,
		&parentID, &cat.IsActive, &cat.CreatedAt)
	if err != nil {
		return nil, err
	}

	cat.Type = model.CategoryType(catType)
	if parentID.Valid {
		cat.ParentID = &parentID.Int64
	}
	return &cat, nil
}
