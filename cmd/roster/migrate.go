package main

import (
	"github.com/rpattn/roster/internal/config"
	"github.com/rpattn/roster/internal/db"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func newMigrateCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(cmd)
			if err != nil {
				return err
			}
			if cfg.Backend != config.BackendPostgres {
				return errors.Newf("migrate requires store.backend=%s, got %s", config.BackendPostgres, cfg.Backend)
			}
			return db.RunMigrations(cfg.Database, logger)
		},
	}
}
