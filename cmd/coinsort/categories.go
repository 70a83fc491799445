package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ghigo/coinsort/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long:  `List, add, rename, and delete the categories records are classified into.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(renameCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())
	cmd.AddCommand(seedCategoriesCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all active categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println("No categories found. Use 'coinsort categories add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "ID\tName\tType\tDescription\n")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 4),
				strings.Repeat("-", 20),
				strings.Repeat("-", 8),
				strings.Repeat("-", 40))
			for _, cat := range categories {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", cat.ID, cat.Name, cat.Type, cat.Description)
			}
			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var description string
	var categoryType string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cat, err := store.CreateCategory(ctx, args[0], description,
				model.CategoryType(categoryType), nil)
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Printf("Created category %q (id %d)\n", cat.Name, cat.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "category description")
	cmd.Flags().StringVarP(&categoryType, "type", "t", "expense", "category type (income, expense, system)")
	return cmd
}

func renameCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <new-name>",
		Short: "Rename a category",
		Long: `Rename a category. Rules, merchant mappings, and history reference
categories by id, so existing data follows the new name immediately.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.RenameCategory(ctx, id, args[1]); err != nil {
				return err
			}

			fmt.Printf("Renamed category %d to %q\n", id, args[1])
			return nil
		},
	}
}

// categorySeed is one entry of a YAML category seed file.
type categorySeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
}

func seedCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load categories from a YAML seed file",
		Long: `Create categories from a YAML file. Existing categories are left
alone, so seeding is safe to repeat.

Example file:

  - name: Groceries
    description: Supermarkets and food stores
    type: expense
  - name: Salary
    type: income`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0]) // #nosec G304 -- user-supplied input file
			if err != nil {
				return fmt.Errorf("failed to read seed file: %w", err)
			}

			var seeds []categorySeed
			if err := yaml.Unmarshal(data, &seeds); err != nil {
				return fmt.Errorf("failed to parse seed file: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			created := 0
			for _, seed := range seeds {
				if seed.Name == "" {
					continue
				}

				existing, err := store.GetCategoryByName(ctx, seed.Name)
				if err != nil {
					return err
				}
				if existing != nil {
					continue
				}

				if _, err := store.CreateCategory(ctx, seed.Name, seed.Description,
					model.CategoryType(seed.Type), nil); err != nil {
					return fmt.Errorf("failed to create category %q: %w", seed.Name, err)
				}
				created++
			}

			fmt.Printf("Seeded %d new categories.\n", created)
			return nil
		},
	}
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category",
		Long: `Deactivate a category. Rules pointing at it are disabled and merchant
mappings cleared; classification history keeps its rows.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteCategory(ctx, id); err != nil {
				return err
			}

			fmt.Printf("Deleted category %d\n", id)
			return nil
		},
	}
}
