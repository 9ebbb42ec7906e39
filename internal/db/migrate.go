package db

import (
	"embed"

	"github.com/cockroachdb/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies every pending up migration embedded in the binary.
func RunMigrations(config Config, logger *logrus.Logger) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return errors.Wrap(err, "failed to open embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, config.MigrationURL())
	if err != nil {
		return errors.Wrap(err, "failed to initialise migrator")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); (srcErr != nil || dbErr != nil) && logger != nil {
			logger.WithFields(logrus.Fields{"source": srcErr, "database": dbErr}).Warn("failed to close migrator")
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			if logger != nil {
				logger.Info("database schema is up to date")
			}
			return nil
		}
		return errors.Wrap(err, "failed to apply migrations")
	}

	if logger != nil {
		version, dirty, _ := m.Version()
		logger.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("applied migrations")
	}
	return nil
}

// MigrationNames lists the embedded migration files, for diagnostics and tests.
func MigrationNames() ([]string, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}
