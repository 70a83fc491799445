// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ghigo/coinsort/internal/model"
)

// Storage defines the contract for the persistence layer the classifier
// consumes. Implementations must be safe for concurrent readers; write
// operations are expected to be idempotent upserts.
type Storage interface {
	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	GetOrCreateCategory(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name, description string, categoryType model.CategoryType, parentID *int64) (*model.Category, error)
	RenameCategory(ctx context.Context, id int64, newName string) error
	DeleteCategory(ctx context.Context, id int64) error

	// Rule operations
	GetRules(ctx context.Context, enabledOnly bool) ([]model.Rule, error)
	GetRuleByPattern(ctx context.Context, pattern string, categoryID int64) (*model.Rule, error)
	UpsertRule(ctx context.Context, rule *model.Rule) error
	RecordRuleOutcome(ctx context.Context, ruleID int64, correct bool) error

	// Merchant memory operations
	GetMerchantMapping(ctx context.Context, merchant string) (*model.MerchantMapping, error)
	GetAllMerchantMappings(ctx context.Context) ([]model.MerchantMapping, error)
	UpsertMerchantMapping(ctx context.Context, merchant string, categoryID int64) error

	// External taxonomy operations
	GetExternalMapping(ctx context.Context, externalCategory, source string) (*model.ExternalMapping, error)
	UpsertExternalMapping(ctx context.Context, mapping *model.ExternalMapping) error
	GetExternalMappingsByStatus(ctx context.Context, status model.MappingStatus) ([]model.ExternalMapping, error)

	// Classification audit trail
	SaveClassification(ctx context.Context, itemID string, itemType model.ItemType, result model.ClassificationResult) error

	// Feedback operations
	RecordFeedback(ctx context.Context, record *model.FeedbackRecord) error
	GetUnprocessedFeedback(ctx context.Context, limit int) ([]model.FeedbackRecord, error)
	MarkFeedbackProcessed(ctx context.Context, ids []int64) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
