// Package sessionmemory keeps save records in process memory. Saves do not
// survive a restart.
package sessionmemory

import (
	"context"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/openkcm/memory-match/internal/record"
	"github.com/openkcm/memory-match/internal/serviceerr"
	"github.com/openkcm/memory-match/internal/session"
)

const defaultCleanupInterval = 10 * time.Minute

type entry struct {
	rec       record.SaveRecord
	updatedAt time.Time
}

type Repository struct {
	saves *cache.Cache
	now   func() time.Time
}

var _ = session.Repository(&Repository{})

type Option func(*Repository)

// WithClock replaces time.Now for update timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository returns an empty repository. A positive retention expires
// records that many seconds after their last write.
func NewRepository(retention time.Duration, opts ...Option) *Repository {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if retention > 0 {
		expiration = retention
		cleanup = min(retention, defaultCleanupInterval)
	}

	r := &Repository{
		saves: cache.New(expiration, cleanup),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Repository) StoreRecord(_ context.Context, slot string, rec record.SaveRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	r.saves.SetDefault(slot, entry{rec: rec.Clone(), updatedAt: r.now().UTC()})

	return nil
}

func (r *Repository) LoadRecord(_ context.Context, slot string) (record.SaveRecord, error) {
	e, ok := r.get(slot)
	if !ok {
		return record.SaveRecord{}, serviceerr.ErrNotFound
	}

	return e.rec.Clone(), nil
}

func (r *Repository) HasRecord(_ context.Context, slot string) (bool, error) {
	_, ok := r.get(slot)
	return ok, nil
}

func (r *Repository) DeleteRecord(_ context.Context, slot string) error {
	if _, ok := r.get(slot); !ok {
		return serviceerr.ErrNotFound
	}

	r.saves.Delete(slot)

	return nil
}

func (r *Repository) ListSlots(_ context.Context) ([]session.Slot, error) {
	items := r.saves.Items()

	slots := make([]session.Slot, 0, len(items))
	for name, item := range items {
		e, ok := item.Object.(entry)
		if !ok {
			continue
		}
		slots = append(slots, session.Slot{Name: name, UpdatedAt: e.updatedAt})
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Name < slots[j].Name })

	return slots, nil
}

func (r *Repository) get(slot string) (entry, bool) {
	v, ok := r.saves.Get(slot)
	if !ok {
		return entry{}, false
	}

	e, ok := v.(entry)
	return e, ok
}
