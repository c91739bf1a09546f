package sessionsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/openkcm/memory-match/internal/record"
	"github.com/openkcm/memory-match/internal/serviceerr"
	"github.com/openkcm/memory-match/internal/session"
)

// Repository stores encoded save records in the saved_games table.
type Repository struct {
	db     *pgxpool.Pool
	format record.Format
}

var _ = session.Repository(&Repository{})

// NewRepository returns a repository writing records in the given format.
// Records are read back in whatever format they were written with.
func NewRepository(db *pgxpool.Pool, format record.Format) *Repository {
	return &Repository{
		db:     db,
		format: format,
	}
}

func (r *Repository) StoreRecord(ctx context.Context, slot string, rec record.SaveRecord) error {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "store_save_record_sql")
	defer span.End()

	payload, err := record.Marshal(r.format, rec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("encoding record: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx, `INSERT INTO saved_games (slot, format, payload, updated_at)
VALUES ($1, $2, $3, now())
	ON CONFLICT (slot)
	DO UPDATE SET (format, payload, updated_at) =
		(EXCLUDED.format, EXCLUDED.payload, EXCLUDED.updated_at);`,
		slot, string(r.format), payload,
	); err != nil {
		span.RecordError(err)
		if err, ok := handlePgError(err); ok {
			return err
		}

		return fmt.Errorf("inserting into saved_games: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("committing tx: %w", err)
	}

	return nil
}

func (r *Repository) LoadRecord(ctx context.Context, slot string) (record.SaveRecord, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "load_save_record_sql")
	defer span.End()

	var (
		formatName string
		payload    []byte
	)
	if err := r.db.QueryRow(ctx, `SELECT format, payload FROM saved_games WHERE slot = $1;`, slot).
		Scan(&formatName, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record.SaveRecord{}, serviceerr.ErrNotFound
		}

		span.RecordError(err)
		if err, ok := handlePgError(err); ok {
			return record.SaveRecord{}, err
		}

		return record.SaveRecord{}, fmt.Errorf("selecting from saved_games: %w", err)
	}

	format, err := record.ParseFormat(formatName)
	if err != nil {
		span.RecordError(err)
		return record.SaveRecord{}, errors.Join(serviceerr.ErrCorruptSave, err)
	}

	rec, err := record.Unmarshal(format, payload)
	if err != nil {
		span.RecordError(err)
		return record.SaveRecord{}, err
	}

	return rec, nil
}

func (r *Repository) HasRecord(ctx context.Context, slot string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM saved_games WHERE slot = $1);`, slot).
		Scan(&exists); err != nil {
		if err, ok := handlePgError(err); ok {
			return false, err
		}

		return false, fmt.Errorf("selecting from saved_games: %w", err)
	}

	return exists, nil
}

func (r *Repository) DeleteRecord(ctx context.Context, slot string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM saved_games WHERE slot = $1;`, slot)
	if err != nil {
		if err, ok := handlePgError(err); ok {
			return err
		}

		return fmt.Errorf("deleting from saved_games: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return serviceerr.ErrNotFound
	}

	return nil
}

func (r *Repository) ListSlots(ctx context.Context) ([]session.Slot, error) {
	rows, err := r.db.Query(ctx, `SELECT slot, updated_at FROM saved_games ORDER BY slot;`)
	if err != nil {
		if err, ok := handlePgError(err); ok {
			return nil, err
		}

		return nil, fmt.Errorf("selecting from saved_games: %w", err)
	}

	slots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (session.Slot, error) {
		var s session.Slot
		err := row.Scan(&s.Name, &s.UpdatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning saved_games: %w", err)
	}

	return slots, nil
}
