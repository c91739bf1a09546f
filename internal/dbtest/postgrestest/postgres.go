package postgrestest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"

	slogctx "github.com/veqryn/slog-context"

	migrations "github.com/openkcm/memory-match/sql"
)

const (
	DBHost     = "localhost"
	DBUser     = "postgres"
	DBPassword = "secret"
	DBName     = "memory_match"
	DBSSLMode  = "disable"
)

const (
	// StaleSlot holds a valid record last written at StaleTime.
	StaleSlot = "stale-slot"
	// StalePayload is the JSON record stored in StaleSlot.
	StalePayload = `{"cardIds":[0,1,0,1],"cardStates":[{"isFlipped":true,"isMatched":true},{"isFlipped":false,"isMatched":false},{"isFlipped":true,"isMatched":true},{"isFlipped":false,"isMatched":false}],"score":100,"combo":1,"rows":2,"columns":2,"matchedPairs":1}`
	// CorruptSlot holds a payload that is not a valid record.
	CorruptSlot = "corrupt-slot"
)

// StaleTime is the update time of StaleSlot.
var StaleTime = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Start initialises a database instance and returns a connection pool, database port, and termination function.
//
// Database credentials are available as exported constants.
// The database contains the rows inserted by prepareDB.
func Start(ctx context.Context) (*pgxpool.Pool, nat.Port, func(ctx context.Context)) {
	pgContainer, err := postgres.Run(
		ctx,
		"postgres:17-alpine",
		postgres.WithDatabase(DBName),
		postgres.WithUsername(DBUser),
		postgres.WithPassword(DBPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		slogctx.Error(ctx, "Failed to start PostgreSQL", slog.String("error", err.Error()))
		panic(err)
	}

	port, err := pgContainer.MappedPort(ctx, nat.Port("5432"))
	if err != nil {
		slogctx.Error(ctx, "Failed to get mapped port for the PostgreSQL container", slog.String("error", err.Error()))
		panic(err)
	}

	connStr := ConnStr(port)
	migrateDB(ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		panic(err)
	}
	prepareDB(ctx, pool)

	terminate := func(ctx context.Context) {
		pool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			slogctx.Error(ctx, "Failed to terminate PostgreSQL container", slog.String("error", err.Error()))
			panic(err)
		}
	}

	return pool, port, terminate
}

// ConnStr returns the DSN of the test database on the given port.
func ConnStr(port nat.Port) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s", DBHost, DBUser, DBPassword, DBName, port.Port(), DBSSLMode)
}

func migrateDB(ctx context.Context, connStr string) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		panic(err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		panic(err)
	}
}

func prepareDB(ctx context.Context, pool *pgxpool.Pool) {
	if _, err := pool.Exec(ctx,
		`INSERT INTO saved_games (slot, format, payload, updated_at) VALUES ($1, 'json', $2, $3), ($4, 'json', $5, now());`,
		StaleSlot, []byte(StalePayload), StaleTime,
		CorruptSlot, []byte(`{"cardIds":[0]}`),
	); err != nil {
		panic(err)
	}
}
