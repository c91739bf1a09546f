package session

import (
	"context"
	"time"

	"github.com/openkcm/memory-match/internal/record"
)

// DefaultSlot is the save slot used when none is configured.
const DefaultSlot = "default"

// Slot describes a stored save record.
type Slot struct {
	Name      string
	UpdatedAt time.Time
}

type Repository interface {
	// StoreRecord creates or replaces the record in the slot.
	StoreRecord(ctx context.Context, slot string, rec record.SaveRecord) error
	// LoadRecord returns serviceerr.ErrNotFound for an empty slot and
	// serviceerr.ErrCorruptSave for data that does not decode to a valid record.
	LoadRecord(ctx context.Context, slot string) (record.SaveRecord, error)
	HasRecord(ctx context.Context, slot string) (bool, error)
	// DeleteRecord returns serviceerr.ErrNotFound for an empty slot.
	DeleteRecord(ctx context.Context, slot string) error
	ListSlots(ctx context.Context) ([]Slot, error)
}
