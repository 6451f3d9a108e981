package config

import (
	"errors"
	"fmt"
	"slices"
)

// Default values for settings not present in file or environment.
const (
	DefaultDatabase          = "querysteps.db"
	DefaultFormat            = "text"
	DefaultIntermediateTable = "@intermediate"
	DefaultPreviewMaxRows    = 50
)

// Formats lists the accepted output formats.
var Formats = []string{"text", "json"}

// Config is the top-level configuration struct for querysteps.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Database          string        `mapstructure:"database"`
	Format            string        `mapstructure:"format"`
	Verbose           bool          `mapstructure:"verbose"`
	IntermediateTable string        `mapstructure:"intermediate_table"`
	Preview           PreviewConfig `mapstructure:"preview"`
}

// PreviewConfig holds settings for executing steps against sample data.
type PreviewConfig struct {
	// Seed is a SQL script run before the first preview on a fresh database.
	Seed    string `mapstructure:"seed"`
	MaxRows int    `mapstructure:"max_rows"`
}

var (
	// ErrInvalidFormat indicates an unknown output format.
	ErrInvalidFormat = errors.New("format must be one of text, json")
	// ErrEmptyIntermediateTable indicates a blank placeholder name.
	ErrEmptyIntermediateTable = errors.New("intermediate_table must not be empty")
	// ErrInvalidMaxRows indicates a negative preview row limit.
	ErrInvalidMaxRows = errors.New("preview.max_rows must be non-negative")
)

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("%w: got %q", ErrInvalidFormat, c.Format)
	}
	if c.IntermediateTable == "" {
		return ErrEmptyIntermediateTable
	}
	if c.Preview.MaxRows < 0 {
		return ErrInvalidMaxRows
	}
	return nil
}
