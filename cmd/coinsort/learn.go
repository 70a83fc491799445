package main

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ghigo/coinsort/internal/common"
	"github.com/ghigo/coinsort/internal/learning"
	"github.com/ghigo/coinsort/internal/memory"
	"github.com/ghigo/coinsort/internal/model"
)

func learnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Feed corrections back into the classifier",
		Long: `Record corrections and turn accumulated feedback into rules and
merchant mappings, so the same mistake is not made twice.`,
	}

	cmd.AddCommand(correctCmd())
	cmd.AddCommand(retrainCmd())
	cmd.AddCommand(watchCmd())

	return cmd
}

func correctCmd() *cobra.Command {
	var (
		itemType  string
		merchant  string
		suggested string
	)

	cmd := &cobra.Command{
		Use:   "correct <item-id> <description> <category>",
		Short: "Record a corrected classification",
		Long: `Record that a classified record actually belongs to the given
category. The correction immediately updates the merchant memory and,
when the description carries a usable pattern, the rule store.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			learner := learning.NewLearner(store, memory.New(store))
			err = learner.Learn(ctx, learning.Correction{
				ItemID:            args[0],
				ItemType:          model.ItemType(itemType),
				Merchant:          merchant,
				Description:       args[1],
				SuggestedCategory: suggested,
				ActualCategory:    args[2],
			})
			if err != nil {
				return err
			}

			fmt.Printf("Recorded correction: %q -> %s\n", args[1], args[2])
			return nil
		},
	}

	cmd.Flags().StringVar(&itemType, "type", "transaction", "record type (transaction, item)")
	cmd.Flags().StringVar(&merchant, "merchant", "", "merchant name, when known")
	cmd.Flags().StringVar(&suggested, "suggested", "", "category the cascade had suggested")
	return cmd
}

func retrainCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"retrain"},
		Short:   "Promote accumulated feedback into rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			learner := learning.NewLearner(store, memory.New(store))
			promoted, err := learner.Retrain(ctx, limit)
			if err != nil {
				return err
			}

			fmt.Printf("Promoted %d rules from feedback.\n", promoted)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 500, "maximum feedback records to process")
	return cmd
}

func watchCmd() *cobra.Command {
	var schedule string
	var limit int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run retraining on a schedule",
		Long: `Keep running and promote accumulated feedback into rules on a cron
schedule. Stops on interrupt.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			learner := learning.NewLearner(store, memory.New(store))

			scheduler := cron.New()
			_, err = scheduler.AddFunc(schedule, func() {
				promoted, err := learner.Retrain(ctx, limit)
				if err != nil {
					common.LogError(err, "scheduled retraining failed", common.Fields{"schedule": schedule})
					return
				}
				if promoted > 0 {
					slog.Info("scheduled retraining promoted rules", "count", promoted)
				}
			})
			if err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}

			slog.Info("watching for feedback", "schedule", schedule)
			scheduler.Start()

			<-ctx.Done()
			stopCtx := scheduler.Stop()
			<-stopCtx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "@hourly", "cron schedule for retraining passes")
	cmd.Flags().IntVar(&limit, "limit", 500, "maximum feedback records per pass")
	return cmd
}
