// Package rules implements pattern-to-category rule matching for the
// classification cascade.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/ghigo/coinsort/internal/common"
	"github.com/ghigo/coinsort/internal/model"
)

// Source is the slice of the persistence contract the rule store consumes.
type Source interface {
	GetRules(ctx context.Context, enabledOnly bool) ([]model.Rule, error)
}

// compiledRule pairs a rule with its pre-compiled regex. The regex is
// compiled once at load time; a rule that fails to compile is dropped there
// so matching never has to handle a malformed pattern.
type compiledRule struct {
	re *regexp.Regexp
	model.Rule
}

// ValidatePattern reports whether a pattern is usable for the given match
// type. Only regex patterns can be malformed; exact and partial patterns are
// opaque strings.
func ValidatePattern(pattern string, matchType model.MatchType) error {
	if matchType != model.MatchRegex {
		return nil
	}
	if _, err := regexp.Compile("(?i)" + pattern); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidPattern, err)
	}
	return nil
}

// Store holds validated, pre-compiled rules in match order: accuracy rate
// descending, then usage count descending. Safe for concurrent readers.
type Store struct {
	rules []compiledRule
	mu    sync.RWMutex
}

// NewStore creates an empty rule store. Call Load before matching.
func NewStore() *Store {
	return &Store{}
}

// Load replaces the store's contents with the enabled rules from src.
// Regex rules are compiled case-insensitively here; a rule whose pattern
// does not compile is skipped and logged, never surfaced as an error.
func (s *Store) Load(ctx context.Context, src Source) error {
	loaded, err := src.GetRules(ctx, true)
	if err != nil {
		return err
	}

	compiled := make([]compiledRule, 0, len(loaded))
	for _, rule := range loaded {
		cr := compiledRule{Rule: rule}
		if rule.MatchType == model.MatchRegex {
			re, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				slog.Warn("skipping rule with malformed regex",
					"rule_id", rule.ID,
					"pattern", rule.Pattern,
					"error", fmt.Errorf("%w: %v", common.ErrInvalidPattern, err))
				continue
			}
			cr.re = re
		}
		compiled = append(compiled, cr)
	}

	s.mu.Lock()
	s.rules = compiled
	s.mu.Unlock()

	slog.Debug("loaded rules", "count", len(compiled), "skipped", len(loaded)-len(compiled))
	return nil
}

// Match returns the first rule matching the merchant or description, in the
// store's reliability order, or nil when no rule matches.
func (s *Store) Match(merchant, description string) *model.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.rules {
		if s.rules[i].matches(merchant) || s.rules[i].matches(description) {
			rule := s.rules[i].Rule
			return &rule
		}
	}
	return nil
}

// MatchIdentifier returns the first exact-type rule whose pattern equals the
// given external identifier, or nil. Partial and regex rules are ignored:
// identifiers are opaque strings, not text to pattern-match.
func (s *Store) MatchIdentifier(externalID string) *model.Rule {
	if externalID == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.rules {
		if s.rules[i].MatchType != model.MatchExact {
			continue
		}
		if strings.EqualFold(s.rules[i].Pattern, externalID) {
			rule := s.rules[i].Rule
			return &rule
		}
	}
	return nil
}

// Len returns the number of loaded rules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

func (r *compiledRule) matches(candidate string) bool {
	if candidate == "" {
		return false
	}

	switch r.MatchType {
	case model.MatchExact:
		return strings.EqualFold(r.Pattern, candidate)
	case model.MatchPartial:
		return strings.Contains(strings.ToLower(candidate), strings.ToLower(r.Pattern))
	case model.MatchRegex:
		return r.re != nil && r.re.MatchString(candidate)
	}
	return false
}
