package model

// PurchasedItem represents a single line item from an order or receipt.
type PurchasedItem struct {
	ID              string
	ExternalID      string // Retailer's own identifier (e.g., ASIN), may be empty
	Title           string
	ForeignCategory string // Retailer's own category string, may be empty
	Price           float64
}
