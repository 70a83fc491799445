// Package model defines the core domain types for the coinsort application.
package model

import "time"

// CategoryType indicates whether a category is for income, expense, or system use.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income records.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense records.
	CategoryTypeExpense CategoryType = "expense"
	// CategoryTypeSystem represents system-managed categories (e.g., the
	// uncategorized bucket).
	CategoryTypeSystem CategoryType = "system"
)

// Category represents a spending category. Identity is the ID; the name is
// unique case-insensitively but mutable, so dependent entities store the ID
// and resolve the display name at read time.
type Category struct {
	CreatedAt   time.Time
	Name        string
	Description string
	Type        CategoryType
	ParentID    *int64
	ID          int64
	IsActive    bool
}
