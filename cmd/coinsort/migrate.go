package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghigo/coinsort/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// initStorage runs pending migrations as part of opening.
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			version, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Database schema at version %d (expected %d).\n",
				version, storage.ExpectedSchemaVersion)
			return nil
		},
	}
}
