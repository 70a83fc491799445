package model

import "time"

// ItemType distinguishes the two record domains feedback can refer to.
type ItemType string

const (
	// ItemTypeTransaction marks feedback about a bank transaction.
	ItemTypeTransaction ItemType = "transaction"
	// ItemTypePurchasedItem marks feedback about a purchased item.
	ItemTypePurchasedItem ItemType = "item"
)

// FeedbackRecord logs one user override of a suggested category. Records are
// consumed in batches by the learner and marked processed.
type FeedbackRecord struct {
	CreatedAt         time.Time
	ItemID            string
	ItemType          ItemType
	Merchant          string
	Description       string
	SuggestedCategory string
	ActualCategory    string
	Method            Method
	ID                int64
	Confidence        int
	Processed         bool
}
