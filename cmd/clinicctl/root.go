package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RyneJoanams/gulf-main-sub001/config"
	"github.com/RyneJoanams/gulf-main-sub001/internal/storage"
)

const commandTimeout = time.Minute

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Maintenance commands for the clinic API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// Global config flag, available for all commands.
	cmd.PersistentFlags().String("config", "", "config file path")

	cmd.AddCommand(newUserCommand())
	cmd.AddCommand(newIndexesCommand())
	cmd.AddCommand(newConfigCommand())
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}

// openStore loads config and opens its store. The caller must call the
// returned cleanup.
func openStore(ctx context.Context, cmd *cobra.Command) (*config.Config, *storage.Store, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := storage.Open(ctx, cfg.Storage, zap.NewNop().Sugar())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	cleanup := func() { _ = store.Close(context.Background()) }
	return cfg, store, cleanup, nil
}
