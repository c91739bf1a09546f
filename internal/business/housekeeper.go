package business

import (
	"context"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/memory-match/internal/config"
	"github.com/openkcm/memory-match/internal/schedule"
	"github.com/openkcm/memory-match/internal/session"
)

// HousekeeperMain deletes saves older than the retention window on every
// trigger interval until ctx is done.
func HousekeeperMain(ctx context.Context, cfg *config.Config) error {
	if cfg.Housekeeper.TriggerInterval <= 0 {
		return fmt.Errorf("housekeeper trigger interval must be positive, got %s", cfg.Housekeeper.TriggerInterval)
	}

	repo, closeFn, err := initRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialise the save repository: %w", err)
	}
	defer closeFn()

	loop := schedule.NewLoop()
	defer loop.Close()

	manager, err := session.NewManager(&cfg.Game, repo, loop, session.WithSlot(cfg.Storage.Slot))
	if err != nil {
		return fmt.Errorf("failed to initialise the session manager: %w", err)
	}

	c := time.Tick(cfg.Housekeeper.TriggerInterval)
	for {
		deleted, err := manager.CleanupStaleSaves(ctx, cfg.Storage.Retention)
		if err != nil {
			slogctx.Error(ctx, "Error during save housekeeping", "error", err)
		} else {
			slogctx.Info(ctx, "Save housekeeping finished", "deleted", deleted)
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}
