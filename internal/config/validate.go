package config

import (
	"errors"
	"fmt"

	"github.com/openkcm/memory-match/internal/board"
	"github.com/openkcm/memory-match/internal/record"
	"github.com/openkcm/memory-match/internal/serviceerr"
)

// Validate reports configuration that would prevent the first game from
// starting or the save slot from being reached.
func (c *Config) Validate() error {
	var errs []error

	if err := board.ValidateDimensions(c.Game.Rows, c.Game.Columns); err != nil {
		errs = append(errs, err)
	}
	if c.Game.SymbolCount <= 0 {
		errs = append(errs, fmt.Errorf("%w: symbolCount must be positive", serviceerr.ErrInvalidConfig))
	}
	if c.Game.BaseMatchScore < 0 || c.Game.ComboStep < 0 {
		errs = append(errs, fmt.Errorf("%w: scoring values must not be negative", serviceerr.ErrInvalidConfig))
	}
	if c.Game.MismatchDelay < 0 || c.Game.GameOverDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: delays must not be negative", serviceerr.ErrInvalidConfig))
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendValkey, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown storage backend %q", serviceerr.ErrInvalidConfig, c.Storage.Backend))
	}
	if c.Storage.Slot == "" {
		errs = append(errs, fmt.Errorf("%w: storage slot must not be empty", serviceerr.ErrInvalidConfig))
	}
	if _, err := record.ParseFormat(c.Storage.Format); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
