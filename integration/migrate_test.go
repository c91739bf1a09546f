//go:build integration

package integration_test

import (
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/openkcm/memory-match/internal/dbtest/postgrestest"
)

func TestMigrate(t *testing.T) {
	const cmdName = "migrate"

	ctx := t.Context()

	// This test needs an empty database, so it does not use PreparePostgres.
	pgContainer, err := postgres.Run(
		ctx,
		"postgres:17-alpine",
		postgres.WithDatabase(postgrestest.DBName),
		postgres.WithUsername(postgrestest.DBUser),
		postgres.WithPassword(postgrestest.DBPassword),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start PostgreSQL")
	defer func() { _ = pgContainer.Terminate(ctx) }()

	port, err := pgContainer.MappedPort(ctx, nat.Port("5432"))
	require.NoError(t, err, "failed to get mapped port for the PostgreSQL container")

	istat := initInfra(t, cmdName)
	defer istat.Close(ctx)

	istat.Set("storage.backend", "postgres")
	istat.Set("database.name", postgrestest.DBName)
	istat.Set("database.port", port.Port())
	istat.PrepareConfig(t)

	_, err = istat.Run(ctx, t, nil, cmdName)
	require.NoError(t, err, "process exited abnormally")

	pool, err := pgxpool.New(ctx, postgrestest.ConnStr(port))
	require.NoError(t, err)
	defer pool.Close()

	var exists bool
	err = pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'saved_games');`).
		Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "saved_games table was not created")

	// Migrations are idempotent.
	_, err = istat.Run(ctx, t, nil, cmdName)
	require.NoError(t, err, "second run exited abnormally")
}
