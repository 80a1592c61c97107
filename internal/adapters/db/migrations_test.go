package db

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppliedMigrations(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT version, dirty FROM public.schema_migrations ORDER BY version ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).
			AddRow(1, false))

	applied, err := appliedMigrations(context.Background(), sqlDB, "public", "schema_migrations")
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, uint(1), applied[0].Version)
	assert.False(t, applied[0].Dirty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppliedMigrations_QueryError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT version, dirty`).WillReturnError(errors.New("relation does not exist"))

	_, err = appliedMigrations(context.Background(), sqlDB, "public", "schema_migrations")
	assert.ErrorContains(t, err, "failed to query migrations")
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(schemaMigrations, "migrations")
	require.NoError(t, err)

	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	assert.Positive(t, up)
	assert.Equal(t, up, down, "every migration needs a down step")

	schema, err := fs.ReadFile(schemaMigrations, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	for _, table := range []string{"items", "customers", "sales", "sale_lines"} {
		assert.Contains(t, string(schema), "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, string(schema), "CHECK (quantity_on_hand >= 0)")
}

func TestConfig_DatabaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "p@ss word"

	url := cfg.DatabaseURL()
	assert.True(t, strings.HasPrefix(url, "postgres://pharmacy:"))
	assert.Contains(t, url, "@localhost:5432/pharmacy_pos?sslmode=disable")
	assert.NotContains(t, url, "p@ss word")
}
