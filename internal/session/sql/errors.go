package sessionsql

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openkcm/memory-match/internal/serviceerr"
)

// ErrSchemaMissing is returned when the saved_games table does not exist.
var ErrSchemaMissing = errors.New("saved_games table missing, run the migrate command")

const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
)

func handlePgError(err error) (error, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err, false
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return serviceerr.ErrConflict, true
	case pgUndefinedTable:
		return errors.Join(ErrSchemaMissing, err), true
	default:
		return err, false
	}
}
