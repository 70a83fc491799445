package llm

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ghigo/coinsort/internal/fuzzy"
	"github.com/ghigo/coinsort/internal/model"
)

// Confidence band for AI classifications. Whatever the model reports is
// reshaped into this band: the AI stage never outranks the deterministic
// stages, and never reports less than an even guess.
const (
	minAIConfidence = 50
	maxAIConfidence = 95
)

// Suggestion is a validated AI classification.
type Suggestion struct {
	Category   string
	Reasoning  string
	Confidence int
}

// Classifier turns raw model output into validated category suggestions.
type Classifier struct {
	client Client
	logger *slog.Logger
}

// NewClassifier creates an AI classifier over the given provider client.
func NewClassifier(client Client, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{client: client, logger: logger}
}

// Classify asks the model to place one record into the allowed category set.
// Every failure mode (provider down, timeout, unparseable output, category
// not in the allowed set) yields a nil suggestion and no error: the AI stage
// has no opinion, and the cascade moves on.
func (c *Classifier) Classify(ctx context.Context, description string, price float64, categories []model.Category) *Suggestion {
	if len(categories) == 0 || strings.TrimSpace(description) == "" {
		return nil
	}

	if !c.client.Available(ctx) {
		c.logger.Debug("ai provider unavailable, skipping stage")
		return nil
	}

	prompt := BuildClassificationPrompt(description, price, categories)

	raw, err := c.client.Generate(ctx, prompt)
	if err != nil {
		c.logger.Warn("ai classification failed", "error", err)
		return nil
	}

	parsed, err := parseResponse(raw)
	if err != nil {
		c.logger.Warn("ai response unparseable", "error", err)
		return nil
	}

	category := validateCategory(parsed.Category, categories)
	if category == "" {
		c.logger.Warn("ai suggested category outside allowed set",
			"suggested", parsed.Category)
		return nil
	}

	return &Suggestion{
		Category:   category,
		Confidence: clipConfidence(parsed.Confidence),
		Reasoning:  parsed.Reasoning,
	}
}

// recoveryThreshold is the similarity a misspelled suggestion must clear
// against an allowed name after the containment check fails.
const recoveryThreshold = 0.75

// validateCategory resolves the model's suggestion against the allowed set.
// Exact case-insensitive match first; then both sides are reduced to
// alphanumerics and a containment either way accepts (this recovers
// decorations like "**Groceries**" and partial answers); finally an
// edit-distance pass recovers outright typos like "Grocerys". An empty
// return means no match: the caller must not invent a category.
func validateCategory(suggested string, categories []model.Category) string {
	suggested = strings.TrimSpace(suggested)
	if suggested == "" {
		return ""
	}

	for _, cat := range categories {
		if strings.EqualFold(cat.Name, suggested) {
			return cat.Name
		}
	}

	normalized := normalizeAlnum(suggested)
	if normalized == "" {
		return ""
	}
	for _, cat := range categories {
		candidate := normalizeAlnum(cat.Name)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, normalized) || strings.Contains(normalized, candidate) {
			return cat.Name
		}
	}

	best := ""
	bestScore := 0.0
	for _, cat := range categories {
		score := fuzzy.Similarity(normalized, normalizeAlnum(cat.Name))
		if score >= recoveryThreshold && score > bestScore {
			best = cat.Name
			bestScore = score
		}
	}

	return best
}

func normalizeAlnum(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, s)
}

func clipConfidence(confidence int) int {
	if confidence < minAIConfidence {
		return minAIConfidence
	}
	if confidence > maxAIConfidence {
		return maxAIConfidence
	}
	return confidence
}
