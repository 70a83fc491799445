package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ghigo/coinsort/internal/common"
	"github.com/ghigo/coinsort/internal/engine"
	"github.com/ghigo/coinsort/internal/model"
)

// transactionInput is the JSON wire shape of an exported bank transaction.
type transactionInput struct {
	ID           string   `json:"id"`
	Date         string   `json:"date"`
	Description  string   `json:"description"`
	MerchantName string   `json:"merchant_name"`
	AccountID    string   `json:"account_id"`
	Source       string   `json:"source"`
	Category     []string `json:"category"`
	Taxonomy     *struct {
		Primary         string `json:"primary"`
		Detailed        string `json:"detailed"`
		ConfidenceLevel string `json:"confidence_level"`
	} `json:"personal_finance_category"`
	Amount float64 `json:"amount"`
}

func (in *transactionInput) toModel() model.Transaction {
	txn := model.Transaction{
		ID:             in.ID,
		Description:    in.Description,
		MerchantName:   in.MerchantName,
		AccountID:      in.AccountID,
		Source:         in.Source,
		LegacyCategory: in.Category,
		Amount:         in.Amount,
	}
	if date, err := time.Parse("2006-01-02", in.Date); err == nil {
		txn.Date = date
	}
	if in.Taxonomy != nil {
		txn.ForeignTaxonomy = &model.ForeignTaxonomy{
			Primary:         in.Taxonomy.Primary,
			Detailed:        in.Taxonomy.Detailed,
			ConfidenceLevel: in.Taxonomy.ConfidenceLevel,
		}
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <file.json>",
		Short: "Classify a file of bank transactions",
		Long: `Read a JSON export of bank transactions and run each through the
classification cascade. Results are printed and recorded in the
classification history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			txns, err := loadTransactions(args[0])
			if err != nil {
				return err
			}
			if len(txns) == 0 {
				fmt.Println("No transactions found in input file.")
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

			bar := progressbar.NewOptions(len(txns),
				progressbar.OptionSetDescription("Classifying"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			results := eng.ClassifyTransactionBatch(ctx, txns, func(engine.BatchResult) {
				_ = bar.Add(1)
			})

			printResults(results)
			return nil
		},
	}
	return cmd
}

func loadTransactions(path string) ([]model.Transaction, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied input file
	if err != nil {
		return nil, common.NewUserError("could not read input file", err)
	}

	var inputs []transactionInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		// Accept both a bare array and a wrapped export.
		var wrapped struct {
			Transactions []transactionInput `json:"transactions"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, common.NewUserError("input file is not a transaction export", err)
		}
		inputs = wrapped.Transactions
	}

	txns := make([]model.Transaction, 0, len(inputs))
	for i := range inputs {
		if inputs[i].ID == "" {
			inputs[i].ID = fmt.Sprintf("txn-%d", i+1)
		}
		txns = append(txns, inputs[i].toModel())
	}
	return txns, nil
}

func printResults(results []engine.BatchResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "ID\tCategory\tConfidence\tMethod\n")
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 8),
		strings.Repeat("-", 20),
		strings.Repeat("-", 10),
		strings.Repeat("-", 16))

	classified := 0
	for _, r := range results {
		category := r.Result.Category
		if category == "" {
			category = "(unclassified)"
		} else {
			classified++
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.ItemID, category, r.Result.Confidence, r.Result.Method)
	}

	fmt.Fprintf(w, "\nClassified %d of %d records.\n", classified, len(results))
}
