package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	directoryapp "github.com/campuslink/campuslink-server/internal/app"
	"github.com/campuslink/campuslink-server/internal/seed"
)

const defaultGracefulTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the directory API server",
		Long: `Start the directory API server.

The server requires a configuration file (--config) that specifies:
- The storage backend (database, sqlite or memory)
- Places access used to refresh open/closed status
- Optional Kafka brokers for status change events

See examples/ directory for sample configurations.`,
		RunE: runServe,
	}

	cmd.Flags().String("address", "", "Address to listen on (overrides server.address)")
	cmd.Flags().Bool("seed", false, "Replace the directory with the built-in campus services before serving")
	addConfigFlag(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []directoryapp.DirectoryAppOptions{directoryapp.WithConfig(cfg)}

	address, err := cmd.Flags().GetString("address")
	if err != nil {
		return fmt.Errorf("failed to get address flag: %w", err)
	}
	if address != "" {
		opts = append(opts, directoryapp.WithAddress(address))
	}

	withSeed, err := cmd.Flags().GetBool("seed")
	if err != nil {
		return fmt.Errorf("failed to get seed flag: %w", err)
	}
	if withSeed {
		records, err := seed.Campus()
		if err != nil {
			return err
		}
		opts = append(opts, directoryapp.WithSeedRecords(records))
	}

	app, err := directoryapp.NewDirectoryApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create directory app: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	select {
	case err := <-errCh:
		if stopErr := app.Stop(defaultGracefulTimeout); stopErr != nil {
			slog.Error("Failed to release resources", "error", stopErr)
		}
		return err
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	// Signals received during shutdown terminate the process.
	stop()
	return app.Stop(defaultGracefulTimeout)
}

// commandContext returns the command context, or a background one when the
// command runs outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
