package sessionvalkey

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/valkey-io/valkey-go"
	"go.opentelemetry.io/otel"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/memory-match/internal/record"
	"github.com/openkcm/memory-match/internal/serviceerr"
	"github.com/openkcm/memory-match/internal/session"
)

type ObjectType string

const (
	objectTypeSave ObjectType = "save"
	objectTypeMeta ObjectType = "meta"
)

var (
	ErrStoreRecord  = errors.New("setting save record into storage")
	ErrGetRecord    = errors.New("getting save record from store")
	ErrDeleteRecord = errors.New("deleting save record from store")
	ErrListSlots    = errors.New("listing save slots from store")
)

// meta sits next to every save payload.
type meta struct {
	Format    record.Format `json:"format"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Repository keeps each slot in two keys: the encoded record and its
// metadata. A positive ttl expires both.
type Repository struct {
	store  *store
	format record.Format
	ttl    time.Duration
}

var _ = session.Repository(&Repository{})

func NewRepository(valkeyClient valkey.Client, prefix string, format record.Format, ttl time.Duration) *Repository {
	return &Repository{
		store:  newStore(valkeyClient, prefix),
		format: format,
		ttl:    ttl,
	}
}

func (r *Repository) StoreRecord(ctx context.Context, slot string, rec record.SaveRecord) error {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "store_save_record_valkey")
	defer span.End()

	payload, err := record.Marshal(r.format, rec)
	if err != nil {
		span.RecordError(err)
		return errors.Join(ErrStoreRecord, err)
	}

	metaBytes, err := r.store.encode(meta{Format: r.format, UpdatedAt: time.Now().UTC()})
	if err != nil {
		span.RecordError(err)
		return errors.Join(ErrStoreRecord, err)
	}

	var errs []error
	if err := r.store.Set(ctx, objectTypeSave, slot, payload, r.ttl); err != nil {
		errs = append(errs, err)
	}
	if err := r.store.Set(ctx, objectTypeMeta, slot, metaBytes, r.ttl); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		span.RecordError(errors.Join(errs...))
		if err := r.destroy(ctx, slot); err != nil {
			slogctx.Error(ctx, "couldn't delete save record during rollback", "slot", slot, "error", err)
			errs = append(errs, fmt.Errorf("rolling back: %w", err))
		}
		return errors.Join(append([]error{ErrStoreRecord}, errs...)...)
	}

	return nil
}

func (r *Repository) LoadRecord(ctx context.Context, slot string) (record.SaveRecord, error) {
	tracer := otel.GetTracerProvider()
	ctx, span := tracer.Tracer("").Start(ctx, "load_save_record_valkey")
	defer span.End()

	payload, err := r.store.Get(ctx, objectTypeSave, slot)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return record.SaveRecord{}, err
		}
		span.RecordError(err)
		return record.SaveRecord{}, errors.Join(ErrGetRecord, err)
	}

	format := r.format
	m, err := r.meta(ctx, slot)
	switch {
	case err == nil:
		format, err = record.ParseFormat(string(m.Format))
		if err != nil {
			span.RecordError(err)
			return record.SaveRecord{}, errors.Join(serviceerr.ErrCorruptSave, err)
		}
	case errors.Is(err, serviceerr.ErrNotFound):
		// Written without metadata; assume the configured format.
	default:
		span.RecordError(err)
		return record.SaveRecord{}, errors.Join(ErrGetRecord, err)
	}

	rec, err := record.Unmarshal(format, payload)
	if err != nil {
		span.RecordError(err)
		return record.SaveRecord{}, err
	}

	return rec, nil
}

func (r *Repository) HasRecord(ctx context.Context, slot string) (bool, error) {
	ok, err := r.store.Exists(ctx, objectTypeSave, slot)
	if err != nil {
		return false, errors.Join(ErrGetRecord, err)
	}

	return ok, nil
}

func (r *Repository) DeleteRecord(ctx context.Context, slot string) error {
	existed, err := r.store.Destroy(ctx, objectTypeSave, slot)
	if err != nil {
		return errors.Join(ErrDeleteRecord, err)
	}
	if _, err := r.store.Destroy(ctx, objectTypeMeta, slot); err != nil {
		return errors.Join(ErrDeleteRecord, err)
	}

	if !existed {
		return serviceerr.ErrNotFound
	}

	return nil
}

// ListSlots returns the slots that carry metadata, sorted by name.
func (r *Repository) ListSlots(ctx context.Context) ([]session.Slot, error) {
	ids, err := r.store.IDs(ctx, objectTypeMeta)
	if err != nil {
		return nil, errors.Join(ErrListSlots, err)
	}

	slots := make([]session.Slot, 0, len(ids))
	for _, id := range ids {
		m, err := r.meta(ctx, id)
		switch {
		case err == nil:
		case errors.Is(err, serviceerr.ErrNotFound):
			// Expired or deleted since the scan.
			continue
		case errors.Is(err, serviceerr.ErrCorruptSave):
			// Unreadable metadata reports the zero time so housekeeping drops it.
		default:
			return nil, errors.Join(ErrListSlots, err)
		}
		slots = append(slots, session.Slot{Name: id, UpdatedAt: m.UpdatedAt})
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Name < slots[j].Name })

	return slots, nil
}

func (r *Repository) meta(ctx context.Context, slot string) (meta, error) {
	b, err := r.store.Get(ctx, objectTypeMeta, slot)
	if err != nil {
		return meta{}, err
	}

	var m meta
	if err := r.store.decode(b, &m); err != nil {
		return meta{}, errors.Join(serviceerr.ErrCorruptSave, fmt.Errorf("decoding metadata: %w", err))
	}

	return m, nil
}

func (r *Repository) destroy(ctx context.Context, slot string) error {
	if _, err := r.store.Destroy(ctx, objectTypeSave, slot); err != nil {
		return err
	}
	if _, err := r.store.Destroy(ctx, objectTypeMeta, slot); err != nil {
		return err
	}
	return nil
}
