package sessionmock

import (
	"context"
	"sort"
	"time"

	"github.com/openkcm/memory-match/internal/record"
	"github.com/openkcm/memory-match/internal/serviceerr"
	"github.com/openkcm/memory-match/internal/session"
)

type RepositoryOption func(*Repository)

type entry struct {
	rec       record.SaveRecord
	updatedAt time.Time
}

// Repository keeps records in a map. Records are stored as given, without
// validation, so callers can plant inconsistent saves.
type Repository struct {
	records map[string]entry

	storeErr, loadErr, hasErr, deleteErr, listErr error
}

// WithRecord plants rec in slot, updated now.
func WithRecord(slot string, rec record.SaveRecord) RepositoryOption {
	return WithRecordAt(slot, rec, time.Now())
}

// WithRecordAt plants rec in slot with the given update time.
func WithRecordAt(slot string, rec record.SaveRecord, updatedAt time.Time) RepositoryOption {
	return func(r *Repository) { r.records[slot] = entry{rec: rec.Clone(), updatedAt: updatedAt} }
}
func WithStoreRecordError(err error) RepositoryOption {
	return func(r *Repository) { r.storeErr = err }
}
func WithLoadRecordError(err error) RepositoryOption {
	return func(r *Repository) { r.loadErr = err }
}
func WithHasRecordError(err error) RepositoryOption {
	return func(r *Repository) { r.hasErr = err }
}
func WithDeleteRecordError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteErr = err }
}
func WithListSlotsError(err error) RepositoryOption {
	return func(r *Repository) { r.listErr = err }
}

var _ = session.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		records: make(map[string]entry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) StoreRecord(_ context.Context, slot string, rec record.SaveRecord) error {
	if r.storeErr != nil {
		return r.storeErr
	}
	r.records[slot] = entry{rec: rec.Clone(), updatedAt: time.Now()}
	return nil
}

func (r *Repository) LoadRecord(_ context.Context, slot string) (record.SaveRecord, error) {
	if r.loadErr != nil {
		return record.SaveRecord{}, r.loadErr
	}
	if e, ok := r.records[slot]; ok {
		return e.rec.Clone(), nil
	}
	return record.SaveRecord{}, serviceerr.ErrNotFound
}

func (r *Repository) HasRecord(_ context.Context, slot string) (bool, error) {
	if r.hasErr != nil {
		return false, r.hasErr
	}
	_, ok := r.records[slot]
	return ok, nil
}

func (r *Repository) DeleteRecord(_ context.Context, slot string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.records[slot]; !ok {
		return serviceerr.ErrNotFound
	}
	delete(r.records, slot)
	return nil
}

func (r *Repository) ListSlots(_ context.Context) ([]session.Slot, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	slots := make([]session.Slot, 0, len(r.records))
	for name, e := range r.records {
		slots = append(slots, session.Slot{Name: name, UpdatedAt: e.updatedAt})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Name < slots[j].Name })
	return slots, nil
}
