package interpreter

import (
	"fmt"
	"log/slog"

	"github.com/rhino1998/minipy/pkg/memory"
	"github.com/rhino1998/minipy/pkg/printer"
)

const DefaultPoolSize = 64 * 1024

type Config struct {
	PoolSize         int `toml:"pool_size" yaml:"pool_size"`
	InitialTableSize int `toml:"initial_table_size" yaml:"initial_table_size"`
	// MaxReferences caps the reference table. Zero means unlimited.
	MaxReferences int `toml:"max_references" yaml:"max_references"`
	PrintDepth    int `toml:"print_depth" yaml:"print_depth"`
}

// Validate fills in defaults for unset fields and rejects impossible values.
func (c *Config) Validate(logger *slog.Logger) error {
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}

	if c.PoolSize <= memory.HeaderSize {
		return fmt.Errorf("pool size must be larger than %d bytes, got %d", memory.HeaderSize, c.PoolSize)
	}

	if c.InitialTableSize == 0 {
		c.InitialTableSize = memory.DefaultInitialTableSize
	}

	if c.InitialTableSize < 0 {
		return fmt.Errorf("initial table size must be positive, got %d", c.InitialTableSize)
	}

	if c.MaxReferences < 0 {
		return fmt.Errorf("max references must not be negative, got %d", c.MaxReferences)
	}

	if c.MaxReferences > 0 && c.MaxReferences < c.InitialTableSize {
		logger.Warn("max references is below the initial table size", "max_references", c.MaxReferences, "initial_table_size", c.InitialTableSize)
	}

	if c.PrintDepth == 0 {
		c.PrintDepth = printer.DefaultDepth
	}

	if c.PrintDepth < 0 {
		return fmt.Errorf("print depth must be positive, got %d", c.PrintDepth)
	}

	return nil
}
