// Package engine implements the layered classification cascade for bank
// transactions and purchased items.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ghigo/coinsort/internal/fuzzy"
	"github.com/ghigo/coinsort/internal/llm"
	"github.com/ghigo/coinsort/internal/memory"
	"github.com/ghigo/coinsort/internal/model"
	"github.com/ghigo/coinsort/internal/rules"
	"github.com/ghigo/coinsort/internal/service"
	"github.com/ghigo/coinsort/internal/taxonomy"
)

// AIClassifier is the engine's view of the AI stage. A nil suggestion means
// the model has no opinion.
type AIClassifier interface {
	Classify(ctx context.Context, description string, price float64, categories []model.Category) *llm.Suggestion
}

// Config holds configuration options for the classification engine.
type Config struct {
	// FuzzyThreshold is the similarity bar for the merchant fuzzy stage.
	FuzzyThreshold float64
	// BatchWorkers bounds concurrent classification of a batch. The AI
	// backend is a shared local inference process, so this stays small.
	BatchWorkers int
	// FallbackCategory is the purchased-item cascade's next-to-last resort.
	FallbackCategory string
	// UncategorizedCategory is the terminal bucket for purchased items.
	UncategorizedCategory string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:        fuzzy.DefaultThreshold,
		BatchWorkers:          4,
		FallbackCategory:      "Shopping",
		UncategorizedCategory: "Uncategorized",
	}
}

// Engine runs the two classification cascades. Each stage either accepts
// with a result, abstains with nil, or fails; failures are absorbed at the
// stage boundary, so classification as a whole never raises.
type Engine struct {
	storage service.Storage
	memory  *memory.Memory
	rules   *rules.Store
	mapper  *taxonomy.Mapper
	ai      AIClassifier
	logger  *slog.Logger
	cfg     Config
}

// New creates a classification engine with default configuration.
func New(storage service.Storage, mem *memory.Memory, ruleStore *rules.Store, mapper *taxonomy.Mapper, ai AIClassifier) *Engine {
	return NewWithConfig(storage, mem, ruleStore, mapper, ai, DefaultConfig())
}

// NewWithConfig creates a classification engine with custom configuration.
func NewWithConfig(storage service.Storage, mem *memory.Memory, ruleStore *rules.Store, mapper *taxonomy.Mapper, ai AIClassifier, cfg Config) *Engine {
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = fuzzy.DefaultThreshold
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 4
	}
	if cfg.FallbackCategory == "" {
		cfg.FallbackCategory = "Shopping"
	}
	if cfg.UncategorizedCategory == "" {
		cfg.UncategorizedCategory = "Uncategorized"
	}
	return &Engine{
		storage: storage,
		memory:  mem,
		rules:   ruleStore,
		mapper:  mapper,
		ai:      ai,
		logger:  slog.Default(),
		cfg:     cfg,
	}
}

// stage is one step of a cascade. A nil result with a nil error is an
// abstention; the cascade moves to the next stage.
type stage struct {
	run  func(ctx context.Context) (*model.ClassificationResult, error)
	name string
}

// runCascade tries each stage in order and returns the first accepted
// result. Stage errors are logged and treated as abstentions, so the worst
// outcome is the explicit unclassified terminal state.
func (e *Engine) runCascade(ctx context.Context, stages []stage) model.ClassificationResult {
	for _, s := range stages {
		result, err := s.run(ctx)
		if err != nil {
			e.logger.Warn("classification stage failed, continuing",
				"stage", s.name, "error", err)
			continue
		}
		if result != nil {
			e.logger.Debug("cascade stage accepted",
				"stage", s.name,
				"category", result.Category,
				"confidence", result.Confidence)
			return *result
		}
	}

	return model.ClassificationResult{
		Category:   "",
		Confidence: 0,
		Method:     model.MethodNone,
		Reasoning:  "no classification stage matched",
	}
}

// categoryName resolves a category id to its current display name. A
// deleted or unknown id resolves to "", which callers treat as a stage miss
// rather than a failure.
func (e *Engine) categoryName(ctx context.Context, id int64) (string, error) {
	cat, err := e.storage.GetCategoryByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to resolve category %d: %w", id, err)
	}
	if cat == nil || !cat.IsActive {
		return "", nil
	}
	return cat.Name, nil
}
