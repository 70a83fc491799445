package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ghigo/coinsort/internal/model"
	"github.com/ghigo/coinsort/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
		Long:  `List, add, and bulk-import the pattern rules the cascade matches against.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(importRulesCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in match order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.GetRules(ctx, !all)
			if err != nil {
				return fmt.Errorf("failed to get rules: %w", err)
			}

			if len(rules) == 0 {
				fmt.Println("No rules found. Use 'coinsort rules add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "ID\tPattern\tMatch\tCategory\tAccuracy\tUses\tSource\n")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 4),
				strings.Repeat("-", 24),
				strings.Repeat("-", 7),
				strings.Repeat("-", 16),
				strings.Repeat("-", 8),
				strings.Repeat("-", 5),
				strings.Repeat("-", 11))
			for _, rule := range rules {
				name := fmt.Sprintf("#%d", rule.CategoryID)
				if cat, err := store.GetCategoryByID(ctx, rule.CategoryID); err == nil && cat != nil {
					name = cat.Name
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.0f%%\t%d\t%s\n",
					rule.ID, rule.Pattern, rule.MatchType, name,
					rule.AccuracyRate*100, rule.UsageCount, rule.Source)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include disabled rules")
	return cmd
}

func addRuleCmd() *cobra.Command {
	var matchType string

	cmd := &cobra.Command{
		Use:   "add <pattern> <category>",
		Short: "Add a rule mapping a pattern to a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := rules.ValidatePattern(args[0], model.MatchType(matchType)); err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := store.GetOrCreateCategory(ctx, args[1])
			if err != nil {
				return fmt.Errorf("failed to resolve category: %w", err)
			}

			rule := &model.Rule{
				Pattern:    args[0],
				MatchType:  model.MatchType(matchType),
				CategoryID: category.ID,
				Enabled:    true,
				Source:     model.RuleSourceUser,
			}
			if err := store.UpsertRule(ctx, rule); err != nil {
				return err
			}

			fmt.Printf("Added rule %d: %s (%s) -> %s\n", rule.ID, rule.Pattern, rule.MatchType, category.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&matchType, "match", "m", "partial", "match type (exact, partial, regex)")
	return cmd
}

// ruleSeed is one entry of a YAML rule import file.
type ruleSeed struct {
	Pattern  string `yaml:"pattern"`
	Match    string `yaml:"match"`
	Category string `yaml:"category"`
}

func importRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Bulk-import rules from a YAML file",
		Long: `Import rules from a YAML file. Each entry needs a pattern and a
category; the match type defaults to partial. Categories that do not
exist yet are created.

Example file:

  - pattern: walmart|wal-mart
    match: regex
    category: Groceries
  - pattern: netflix
    category: Entertainment`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0]) // #nosec G304 -- user-supplied input file
			if err != nil {
				return fmt.Errorf("failed to read rules file: %w", err)
			}

			var seeds []ruleSeed
			if err := yaml.Unmarshal(data, &seeds); err != nil {
				return fmt.Errorf("failed to parse rules file: %w", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			imported := 0
			for _, seed := range seeds {
				if seed.Pattern == "" || seed.Category == "" {
					fmt.Fprintf(os.Stderr, "Skipping entry with missing pattern or category\n")
					continue
				}
				if seed.Match == "" {
					seed.Match = string(model.MatchPartial)
				}
				if err := rules.ValidatePattern(seed.Pattern, model.MatchType(seed.Match)); err != nil {
					fmt.Fprintf(os.Stderr, "Skipping rule %q: %v\n", seed.Pattern, err)
					continue
				}

				category, err := store.GetOrCreateCategory(ctx, seed.Category)
				if err != nil {
					return fmt.Errorf("failed to resolve category %q: %w", seed.Category, err)
				}

				rule := &model.Rule{
					Pattern:    seed.Pattern,
					MatchType:  model.MatchType(seed.Match),
					CategoryID: category.ID,
					Enabled:    true,
					Source:     model.RuleSourceSeed,
				}
				if err := store.UpsertRule(ctx, rule); err != nil {
					return fmt.Errorf("failed to import rule %q: %w", seed.Pattern, err)
				}
				imported++
			}

			fmt.Printf("Imported %d rules.\n", imported)
			return nil
		},
	}
}
