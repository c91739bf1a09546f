package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/memory-match/internal/serviceerr"
)

func validConfig() Config {
	return Config{
		Game: Game{
			Rows:           4,
			Columns:        4,
			SymbolCount:    8,
			BaseMatchScore: 100,
			ComboStep:      50,
		},
		Storage: Storage{
			Backend: BackendMemory,
			Slot:    "default",
			Format:  "json",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		assertErr assert.ErrorAssertionFunc
	}{
		{
			name:      "Defaults",
			mutate:    func(*Config) {},
			assertErr: assert.NoError,
		},
		{
			name:      "Yaml format with postgres",
			mutate:    func(c *Config) { c.Storage.Backend, c.Storage.Format = BackendPostgres, "yaml" },
			assertErr: assert.NoError,
		},
		{
			name:      "Odd board",
			mutate:    func(c *Config) { c.Game.Rows, c.Game.Columns = 3, 3 },
			assertErr: assert.Error,
		},
		{
			name:      "No symbols",
			mutate:    func(c *Config) { c.Game.SymbolCount = 0 },
			assertErr: assert.Error,
		},
		{
			name:      "Negative combo step",
			mutate:    func(c *Config) { c.Game.ComboStep = -1 },
			assertErr: assert.Error,
		},
		{
			name:      "Negative delay",
			mutate:    func(c *Config) { c.Game.MismatchDelay = -1 },
			assertErr: assert.Error,
		},
		{
			name:      "Unknown backend",
			mutate:    func(c *Config) { c.Storage.Backend = "etcd" },
			assertErr: assert.Error,
		},
		{
			name:      "Empty slot",
			mutate:    func(c *Config) { c.Storage.Slot = "" },
			assertErr: assert.Error,
		},
		{
			name:      "Unknown format",
			mutate:    func(c *Config) { c.Storage.Format = "xml" },
			assertErr: assert.Error,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			tt.assertErr(t, cfg.Validate())
		})
	}
}

func TestConfig_Validate_InvalidGame(t *testing.T) {
	cfg := validConfig()
	cfg.Game.Rows = 0

	assert.ErrorIs(t, cfg.Validate(), serviceerr.ErrInvalidConfig)
}
