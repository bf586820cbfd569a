package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlcomplete/internal/config"
	"github.com/leapstack-labs/sqlcomplete/internal/metadata/sqlsource"
	"github.com/leapstack-labs/sqlcomplete/internal/metaserver"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve database metadata over HTTP",
		Long: `Serve catalog, schema, table and column metadata of the configured
instances over the REST API that the rest transport reads.

Editors on other machines can then complete against these databases with
metadata.transport set to rest and metadata.endpoint pointing here.`,
		Example: `  # Serve the instances of ./sqlcomplete.yaml
  sqlcomplete serve

  # Listen on all interfaces
  sqlcomplete serve --addr :8765`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default "+config.DefaultServerAddr+")")
	cmd.Flags().String("prefix", "", "Route prefix (default "+metaserver.DefaultPrefix+")")
	cmd.Flags().Int("batch-size", 0, "Concurrent queries of one batched column fetch")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	src := sqlsource.New(cfg.Instances, logger,
		sqlsource.WithBatchLimit(cfg.Metadata.BatchLimit),
		sqlsource.WithDatabases(cfg.Databases),
	)
	defer func() { _ = src.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := metaserver.NewServer(metaserver.Config{
		Transport: src,
		Addr:      cfg.Server.Addr,
		Prefix:    cfg.Server.Prefix,
		Logger:    logger,
	})
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
