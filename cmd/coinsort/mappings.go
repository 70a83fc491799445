package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ghigo/coinsort/internal/model"
)

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Review external taxonomy mappings",
		Long: `External category values (bank aggregator taxonomies, retailer
categories) are queued here when first seen. Approve a mapping to make
it authoritative, or reject it to keep relying on the heuristic.`,
	}

	cmd.AddCommand(listMappingsCmd())
	cmd.AddCommand(approveMappingCmd())
	cmd.AddCommand(rejectMappingCmd())

	return cmd
}

func listMappingsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List external mappings by review status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			mappings, err := store.GetExternalMappingsByStatus(ctx, model.MappingStatus(status))
			if err != nil {
				return err
			}

			if len(mappings) == 0 {
				fmt.Printf("No %s mappings.\n", status)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "External Category\tSource\tCategory\tStatus\n")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 30),
				strings.Repeat("-", 8),
				strings.Repeat("-", 16),
				strings.Repeat("-", 8))
			for _, mapping := range mappings {
				name := "(none)"
				if mapping.UserCategoryID != nil {
					if cat, err := store.GetCategoryByID(ctx, *mapping.UserCategoryID); err == nil && cat != nil {
						name = cat.Name
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					mapping.ExternalCategory, mapping.Source, name, mapping.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "pending", "review status (pending, approved, rejected, unmapped)")
	return cmd
}

func approveMappingCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "approve <external-category> <category>",
		Short: "Approve a mapping to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reviewMapping(cmd, args[0], source, args[1], model.MappingApproved)
		},
	}

	cmd.Flags().StringVar(&source, "source", "bank", "taxonomy source the value came from")
	return cmd
}

func rejectMappingCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "reject <external-category>",
		Short: "Reject a mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reviewMapping(cmd, args[0], source, "", model.MappingRejected)
		},
	}

	cmd.Flags().StringVar(&source, "source", "bank", "taxonomy source the value came from")
	return cmd
}

func reviewMapping(cmd *cobra.Command, external, source, categoryName string, status model.MappingStatus) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	mapping := &model.ExternalMapping{
		ExternalCategory: external,
		Source:           source,
		Status:           status,
	}

	if categoryName != "" {
		category, err := store.GetOrCreateCategory(ctx, categoryName)
		if err != nil {
			return fmt.Errorf("failed to resolve category: %w", err)
		}
		mapping.UserCategoryID = &category.ID
	}

	if err := store.UpsertExternalMapping(ctx, mapping); err != nil {
		return err
	}

	fmt.Printf("Marked %q (%s) as %s\n", external, source, status)
	return nil
}
