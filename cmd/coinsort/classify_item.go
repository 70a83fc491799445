package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ghigo/coinsort/internal/common"
	"github.com/ghigo/coinsort/internal/engine"
	"github.com/ghigo/coinsort/internal/model"
)

// itemInput is the JSON wire shape of an exported purchase line item.
type itemInput struct {
	ID         string  `json:"id"`
	ExternalID string  `json:"external_id"`
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	Price      float64 `json:"price"`
}

func classifyItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify-item <file.json>",
		Short: "Classify a file of purchased items",
		Long: `Read a JSON export of order line items (titles, retailer categories,
identifiers) and run each through the purchased-item cascade. Every
item ends up with some category, if only the uncategorized bucket.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			items, err := loadItems(args[0])
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No items found in input file.")
				return nil
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng, err := initEngine(ctx, store)
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(len(items),
				progressbar.OptionSetDescription("Classifying"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			results := eng.ClassifyItemBatch(ctx, items, func(engine.BatchResult) {
				_ = bar.Add(1)
			})

			printResults(results)
			return nil
		},
	}
}

func loadItems(path string) ([]model.PurchasedItem, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied input file
	if err != nil {
		return nil, common.NewUserError("could not read input file", err)
	}

	var inputs []itemInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		var wrapped struct {
			Items []itemInput `json:"items"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, common.NewUserError("input file is not an item export", err)
		}
		inputs = wrapped.Items
	}

	items := make([]model.PurchasedItem, 0, len(inputs))
	for i, in := range inputs {
		if in.ID == "" {
			in.ID = fmt.Sprintf("item-%d", i+1)
		}
		items = append(items, model.PurchasedItem{
			ID:              in.ID,
			ExternalID:      in.ExternalID,
			Title:           in.Title,
			ForeignCategory: in.Category,
			Price:           in.Price,
		})
	}
	return items, nil
}
