// Package memory implements the learned merchant-to-category map consulted
// by the highest-priority cascade stages.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ghigo/coinsort/internal/fuzzy"
	"github.com/ghigo/coinsort/internal/model"
)

// Source is the slice of the persistence contract the merchant memory consumes.
type Source interface {
	GetMerchantMapping(ctx context.Context, merchant string) (*model.MerchantMapping, error)
	GetAllMerchantMappings(ctx context.Context) ([]model.MerchantMapping, error)
	UpsertMerchantMapping(ctx context.Context, merchant string, categoryID int64) error
}

// cacheTTL bounds how stale the fuzzy-scan snapshot may get before it is
// reloaded from storage.
const cacheTTL = 5 * time.Minute

// Memory is the learned exact-match cache from merchant and description
// strings to categories. Exact lookups hit storage through a per-key cache;
// fuzzy lookups scan a periodically refreshed snapshot in store order.
type Memory struct {
	cacheExpiry time.Time
	src         Source
	byKey       map[string]*model.MerchantMapping
	all         []model.MerchantMapping
	cacheMutex  sync.RWMutex
}

// New creates a merchant memory backed by the given storage.
func New(src Source) *Memory {
	return &Memory{
		src:   src,
		byKey: make(map[string]*model.MerchantMapping),
	}
}

// Lookup returns the mapping whose key equals the given string
// case-insensitively, or nil when none exists.
func (m *Memory) Lookup(ctx context.Context, key string) (*model.MerchantMapping, error) {
	if key == "" {
		return nil, nil
	}
	normalized := strings.ToLower(key)

	m.cacheMutex.RLock()
	cached, ok := m.byKey[normalized]
	fresh := time.Now().Before(m.cacheExpiry)
	m.cacheMutex.RUnlock()
	if ok && fresh {
		return cached, nil
	}

	mapping, err := m.src.GetMerchantMapping(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if mapping != nil {
		m.cacheMutex.Lock()
		m.byKey[normalized] = mapping
		if m.cacheExpiry.IsZero() {
			m.cacheExpiry = time.Now().Add(cacheTTL)
		}
		m.cacheMutex.Unlock()
	}
	return mapping, nil
}

// FuzzyLookup scans all mappings in store order and returns the first whose
// similarity to the key clears the threshold. There is no best-of-N ranking;
// the first qualifying hit wins.
func (m *Memory) FuzzyLookup(ctx context.Context, key string, threshold float64) (*model.MerchantMapping, error) {
	if key == "" {
		return nil, nil
	}
	if threshold <= 0 {
		threshold = fuzzy.DefaultThreshold
	}

	mappings, err := m.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	for i := range mappings {
		if fuzzy.IsMatch(key, mappings[i].Merchant, threshold) {
			mapping := mappings[i]
			return &mapping, nil
		}
	}
	return nil, nil
}

// Upsert records key → category, creating the mapping or incrementing its
// usage count. The category value follows last-write-wins while counters
// only grow.
func (m *Memory) Upsert(ctx context.Context, key string, categoryID int64) error {
	if key == "" {
		return nil
	}
	normalized := strings.ToLower(key)

	if err := m.src.UpsertMerchantMapping(ctx, normalized, categoryID); err != nil {
		return err
	}

	m.cacheMutex.Lock()
	delete(m.byKey, normalized)
	m.all = nil
	m.cacheMutex.Unlock()
	return nil
}

func (m *Memory) snapshot(ctx context.Context) ([]model.MerchantMapping, error) {
	m.cacheMutex.RLock()
	if m.all != nil && time.Now().Before(m.cacheExpiry) {
		mappings := m.all
		m.cacheMutex.RUnlock()
		return mappings, nil
	}
	m.cacheMutex.RUnlock()

	mappings, err := m.src.GetAllMerchantMappings(ctx)
	if err != nil {
		return nil, err
	}

	m.cacheMutex.Lock()
	m.all = mappings
	m.cacheExpiry = time.Now().Add(cacheTTL)
	m.cacheMutex.Unlock()
	return mappings, nil
}
