// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendValkey   = "valkey"
	BackendPostgres = "postgres"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	Game        Game        `yaml:"game"`
	Storage     Storage     `yaml:"storage"`
	Housekeeper Housekeeper `yaml:"housekeeper"`
	Database    Database    `yaml:"database"`
	ValKey      ValKey      `yaml:"valkey"`
}

// Game holds the board and scoring parameters of new games.
type Game struct {
	Rows           int           `yaml:"rows" default:"4"`
	Columns        int           `yaml:"columns" default:"4"`
	SymbolCount    int           `yaml:"symbolCount" default:"8"`
	BaseMatchScore int           `yaml:"baseMatchScore" default:"100"`
	ComboStep      int           `yaml:"comboStep" default:"50"`
	MismatchDelay  time.Duration `yaml:"mismatchDelay" default:"1s"`
	GameOverDelay  time.Duration `yaml:"gameOverDelay" default:"500ms"`
	// Seed fixes the board shuffle. Zero picks a random seed per process.
	Seed uint64 `yaml:"seed"`
}

type Storage struct {
	Backend string `yaml:"backend" default:"memory"`
	Slot    string `yaml:"slot" default:"default"`
	// Format is the save encoding used by the valkey and postgres backends.
	Format    string        `yaml:"format" default:"json"`
	Retention time.Duration `yaml:"retention" default:"720h"`
}

type Housekeeper struct {
	TriggerInterval time.Duration `yaml:"triggerInterval" default:"1h"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	Prefix    string              `yaml:"prefix" default:"memory-match"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
}
