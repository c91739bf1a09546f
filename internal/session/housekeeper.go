package session

import (
	"context"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"
)

// CleanupStaleSaves deletes save slots that have not been written within the
// retention window. It returns the number of deleted slots.
func (m *Manager) CleanupStaleSaves(ctx context.Context, retention time.Duration) (int, error) {
	slots, err := m.saves.ListSlots(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing save slots: %w", err)
	}

	deleted := 0
	for _, s := range slots {
		if time.Since(s.UpdatedAt) < retention {
			continue
		}
		if err := m.saves.DeleteRecord(ctx, s.Name); err != nil {
			slogctx.Warn(ctx, "Could not delete stale save", "slot", s.Name, "error", err)
			continue
		}
		slogctx.Info(ctx, "Deleted stale save", "slot", s.Name, "updated_at", s.UpdatedAt)
		deleted++
	}

	return deleted, nil
}
