package main

import (
	"context"

	"github.com/rpattn/roster/internal/config"
	"github.com/rpattn/roster/internal/db"
	"github.com/rpattn/roster/internal/ingestion"
	"github.com/rpattn/roster/internal/metrics"
	"github.com/rpattn/roster/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds the wiring shared by every subcommand.
type app struct {
	cfg     config.Config
	logger  *logrus.Logger
	conn    *db.Connection
	records repository.RecordRepository
	runs    repository.IngestionLogRepository
	metrics *metrics.Registry
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "roster",
		Short:         "CSV ingestion service for participant rosters",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing config.yaml")

	load := func(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, nil, err
		}
		logger, err := cfg.Log.NewLogger()
		if err != nil {
			return config.Config{}, nil, err
		}
		if cfg.Source != "" {
			logger.WithField("file", cfg.Source).Info("loaded config")
		} else {
			logger.Info("no config.yaml found, using defaults and env vars")
		}
		return cfg, logger, nil
	}

	root.AddCommand(
		newServeCommand(load),
		newIngestCommand(load),
		newMigrateCommand(load),
	)
	return root
}

type loader func(cmd *cobra.Command) (config.Config, *logrus.Logger, error)

// openApp connects the configured store. Postgres is migrated before use.
func openApp(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.NewRegistry()}

	switch cfg.Backend {
	case config.BackendPostgres:
		if err := db.RunMigrations(cfg.Database, logger); err != nil {
			return nil, err
		}
		conn, err := db.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		a.conn = conn
		a.records = repository.NewRecordRepository(conn.Pool)
		a.runs = repository.NewIngestionLogRepository(conn.Pool)
	default:
		logger.Warn("using in-memory store, data is lost on restart")
		a.records = repository.NewMemoryRecordRepository()
		a.runs = repository.NewMemoryIngestionLogRepository()
	}
	return a, nil
}

func (a *app) ingestionService() *ingestion.Service {
	return ingestion.NewService(a.records, a.runs,
		ingestion.WithLogger(a.logger),
		ingestion.WithMetrics(a.metrics),
		ingestion.WithChunkSize(a.cfg.Ingestion.ChunkSize),
		ingestion.WithMaxErrorDetails(a.cfg.Ingestion.MaxErrorDetails),
	)
}

func (a *app) Close() {
	if a.conn != nil {
		a.conn.Close()
	}
}
