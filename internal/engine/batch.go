package engine

import (
	"context"
	"sync"

	"github.com/ghigo/coinsort/internal/model"
)

// BatchResult pairs a record id with its classification.
type BatchResult struct {
	ItemID string
	Result model.ClassificationResult
}

// ClassifyTransactionBatch classifies transactions with limited concurrency.
// The deterministic stages are read-mostly and could fan out freely, but the
// AI backend is a shared local inference process, so the whole batch runs
// behind a small semaphore. Results are returned in input order; each is
// also appended to the audit trail. onResult, when non-nil, is invoked once
// per finished record (from worker goroutines) for progress reporting.
func (e *Engine) ClassifyTransactionBatch(ctx context.Context, txns []model.Transaction, onResult func(BatchResult)) []BatchResult {
	results := make([]BatchResult, len(txns))

	sem := make(chan struct{}, e.cfg.BatchWorkers)
	var wg sync.WaitGroup

	for i, txn := range txns {
		wg.Add(1)
		go func(idx int, txn model.Transaction) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = BatchResult{
					ItemID: txn.ID,
					Result: model.ClassificationResult{Method: model.MethodNone, Reasoning: "canceled"},
				}
				return
			}

			result := e.ClassifyTransaction(ctx, txn)
			results[idx] = BatchResult{ItemID: txn.ID, Result: result}

			if err := e.storage.SaveClassification(ctx, txn.ID, model.ItemTypeTransaction, result); err != nil {
				e.logger.Warn("failed to record classification",
					"transaction_id", txn.ID, "error", err)
			}

			if onResult != nil {
				onResult(results[idx])
			}
		}(i, txn)
	}

	wg.Wait()
	return results
}

// ClassifyItemBatch classifies purchased items with the same bounded
// concurrency as transactions.
func (e *Engine) ClassifyItemBatch(ctx context.Context, items []model.PurchasedItem, onResult func(BatchResult)) []BatchResult {
	results := make([]BatchResult, len(items))

	sem := make(chan struct{}, e.cfg.BatchWorkers)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(idx int, item model.PurchasedItem) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = BatchResult{
					ItemID: item.ID,
					Result: model.ClassificationResult{Method: model.MethodNone, Reasoning: "canceled"},
				}
				return
			}

			result := e.ClassifyItem(ctx, item)
			results[idx] = BatchResult{ItemID: item.ID, Result: result}

			if err := e.storage.SaveClassification(ctx, item.ID, model.ItemTypePurchasedItem, result); err != nil {
				e.logger.Warn("failed to record classification",
					"item_id", item.ID, "error", err)
			}

			if onResult != nil {
				onResult(results[idx])
			}
		}(i, item)
	}

	wg.Wait()
	return results
}
