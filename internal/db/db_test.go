package db

import (
	"strings"
	"testing"

	"github.com/rpattn/roster/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationURL(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "app", Password: "p@ss word", DBName: "roster", SSLMode: "disable"}

	assert.Equal(t, "pgx5://app:p%40ss%20word@db:5433/roster?sslmode=disable", cfg.MigrationURL())
	assert.Equal(t, "host=db port=5433 user=app password=p@ss word dbname=roster sslmode=disable", cfg.DSN())
}

func TestMigrationsCoverEveryKind(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	up, err := migrationFiles.ReadFile("migrations/000001_create_record_tables.up.sql")
	require.NoError(t, err)
	sql := string(up)

	for _, spec := range domain.Specs() {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+spec.Table+" (", spec.Kind)
		for _, field := range spec.Identifiers {
			index := spec.Table + "_" + field + "_key"
			assert.True(t, strings.Contains(sql, index), "missing unique index %s", index)
		}
	}

	for _, name := range names {
		assert.True(t, strings.HasSuffix(name, ".up.sql") || strings.HasSuffix(name, ".down.sql"), name)
	}
}
