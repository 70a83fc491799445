package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ghigo/coinsort/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidRule    = errors.New("invalid rule")
	ErrInvalidMapping = errors.New("invalid external mapping")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRule validates a rule before persisting it.
func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if rule.Pattern == "" {
		return fmt.Errorf("%w: missing pattern", ErrInvalidRule)
	}
	if !rule.MatchType.Valid() {
		return fmt.Errorf("%w: unknown match type %q", ErrInvalidRule, rule.MatchType)
	}
	if rule.CategoryID == 0 {
		return fmt.Errorf("%w: missing category", ErrInvalidRule)
	}
	return nil
}

// validateExternalMapping validates an external taxonomy mapping.
func validateExternalMapping(mapping *model.ExternalMapping) error {
	if mapping == nil {
		return fmt.Errorf("%w: mapping", ErrNilParameter)
	}
	if mapping.ExternalCategory == "" {
		return fmt.Errorf("%w: missing external category", ErrInvalidMapping)
	}
	if mapping.Source == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidMapping)
	}
	if !mapping.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidMapping, mapping.Status)
	}
	return nil
}
