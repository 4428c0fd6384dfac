package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	directoryapp "github.com/campuslink/campuslink-server/internal/app"
	"github.com/campuslink/campuslink-server/internal/app/storage"
	"github.com/campuslink/campuslink-server/internal/enrich"
	"github.com/campuslink/campuslink-server/internal/telemetry"
	"github.com/campuslink/campuslink-server/internal/versions"
)

func newEnrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Link services to Places entries",
		Long: `Look up every service that has no external reference by name near its
location and store the matching Places id, and its address when Places has one.
Lookups are paced by enrich.interval. A Places API key is required.`,
		RunE: runEnrich,
	}
	addConfigFlag(cmd)
	return cmd
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	finder, err := directoryapp.NewPlacesClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create places client: %w", err)
	}

	tel, err := telemetry.New(ctx,
		telemetry.WithTelemetryConfig(cfg.Telemetry),
		telemetry.WithServiceVersion(versions.Version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(ctx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	metrics, err := telemetry.NewEnrichMetrics(tel.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create enrich metrics: %w", err)
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

	enricher, err := enrich.New(finder, store,
		enrich.WithInterval(cfg.Enrich.Interval),
		enrich.WithConcurrency(cfg.Enrich.Concurrency),
		enrich.WithRadius(cfg.Enrich.RadiusMeters),
		enrich.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create enricher: %w", err)
	}

	report, err := enricher.Run(ctx)
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return err
}
