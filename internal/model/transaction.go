package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// ForeignTaxonomy carries a bank aggregator's hierarchical category guess for
// a transaction. Detailed is more specific than Primary.
type ForeignTaxonomy struct {
	Primary         string
	Detailed        string
	ConfidenceLevel string
}

// Transaction represents a single bank transaction from any source.
type Transaction struct {
	Date            time.Time
	ID              string
	Description     string // Raw transaction description
	MerchantName    string // Cleaned merchant name, may be empty
	AccountID       string
	Hash            string
	Source          string   // Vocabulary the category hints came from (e.g. "plaid")
	LegacyCategory  []string // Flat category hints from the source, broadest first
	ForeignTaxonomy *ForeignTaxonomy
	Amount          float64
}

// TaxonomySource returns the vocabulary key for external mapping lookups,
// defaulting to "bank" for records that carry no explicit source.
func (t *Transaction) TaxonomySource() string {
	if t.Source != "" {
		return t.Source
	}
	return "bank"
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.MerchantName,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// SearchKey returns the string merchant-keyed stages should match on: the
// merchant name when present, otherwise the raw description.
func (t *Transaction) SearchKey() string {
	if t.MerchantName != "" {
		return t.MerchantName
	}
	return t.Description
}
