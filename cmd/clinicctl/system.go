package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
)

func newIndexesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the secondary indexes the API relies on",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			_, store, cleanup, err := openStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			specs := repository.Indexes()
			if err := store.EnsureIndexes(ctx, specs); err != nil {
				return fmt.Errorf("failed to create indexes: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ensured %d indexes on %s\n", len(specs), store.Name())
			return nil
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg.Redacted())
		},
	}
}
