package model

import "time"

// MerchantMapping is a learned exact-match entry from a merchant (or
// description) string to a category. The key is stored lowercased so lookups
// are case-insensitive.
type MerchantMapping struct {
	LastUsed     time.Time
	Merchant     string
	CategoryID   int64
	UsageCount   int
	AccuracyRate float64
}
