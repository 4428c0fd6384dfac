package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/campuslink/campuslink-server/internal/app/storage"
	"github.com/campuslink/campuslink-server/internal/config"
	"github.com/campuslink/campuslink-server/internal/directory"
	"github.com/campuslink/campuslink-server/internal/seed"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the directory with seed records",
		Long: `Delete every service record and insert the seed records.

Without --file the built-in campus services are used. With --file the records are
read from a YAML document with a top-level "services" list.`,
		RunE: runSeed,
	}
	cmd.Flags().String("file", "", "Path to a YAML seed file (defaults to the built-in campus services)")
	addConfigFlag(cmd)
	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Storage.Type == config.StorageTypeMemory {
		slog.Warn("Seeding in-memory storage has no lasting effect, use serve --seed instead")
	}

	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return fmt.Errorf("failed to get file flag: %w", err)
	}

	var records []*directory.ServiceRecord
	if file != "" {
		records, err = seed.LoadFile(file)
	} else {
		records, err = seed.Campus()
	}
	if err != nil {
		return err
	}

	factory, err := storage.NewStorageFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage factory: %w", err)
	}
	defer factory.Cleanup()

	store, err := factory.CreateStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create directory store: %w", err)
	}

	n, err := seed.Run(ctx, store, records)
	if err != nil {
		return err
	}

	slog.Info("Directory seeded", "records", n, "storage", cfg.Storage.Type)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d services\n", n)
	return err
}
