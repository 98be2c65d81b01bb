package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ggoomipapa/fammoney-core/internal/cli"
	"github.com/ggoomipapa/fammoney-core/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// initStorage migrates and seeds as a side effect.
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			version, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("database at schema version %d", version)))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show current and expected schema versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			version, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("current: %d\nexpected: %d\n", version, storage.ExpectedSchemaVersion)
			return nil
		},
	})

	return cmd
}
