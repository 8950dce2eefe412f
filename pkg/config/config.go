// Package config defines the explicit engine configuration for Tabular.
//
// The engine carries no process-wide mutable state: thread counts, chunking
// thresholds and the logger hook are threaded into the parallel primitives
// and the column factories through a Config value, keeping the core testable
// in isolation.
package config

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// FilterChunkRows is the fixed chunk size used by parallel row-filter scans.
// Each worker fills a private buffer for one chunk; an ordered section then
// assigns the chunk's contiguous slot in the output, preserving row order.
const FilterChunkRows = 65536

// Config holds the engine-wide settings consumed by the parallel primitives
// and the column construction factories.
type Config struct {
	// NumThreads is the size of the worker team. 0 means runtime.NumCPU().
	NumThreads int `yaml:"num_threads" json:"num_threads"`

	// MinRowsPerThread is the minimum amount of per-thread work below which
	// a bulk operation runs serially instead of fanning out.
	MinRowsPerThread int64 `yaml:"min_rows_per_thread" json:"min_rows_per_thread"`

	// DynamicChunkRows is the chunk size pulled from the shared counter by
	// dynamically scheduled loops.
	DynamicChunkRows int64 `yaml:"dynamic_chunk_rows" json:"dynamic_chunk_rows"`

	// NAStrings lists the string spellings recognized as missing values by
	// forced string-to-numeric casts.
	NAStrings []string `yaml:"na_strings" json:"na_strings"`

	// Logger receives engine diagnostics. Worker threads never log directly;
	// messages produced inside a parallel region are buffered and flushed by
	// the master thread once the region ends.
	Logger *zap.Logger `yaml:"-" json:"-"`
}

// Default returns the default engine configuration.
func Default() *Config {
	return &Config{
		NumThreads:       runtime.NumCPU(),
		MinRowsPerThread: 4096,
		DynamicChunkRows: 1024,
		NAStrings:        []string{"", "NA", "N/A", "na", "null", "NULL", "None"},
		Logger:           zap.NewNop(),
	}
}

// Threads resolves the effective worker-team size.
func (c *Config) Threads() int {
	if c == nil || c.NumThreads <= 0 {
		return runtime.NumCPU()
	}
	return c.NumThreads
}

// Log returns the configured logger, or a no-op logger when unset.
func (c *Config) Log() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// IsNAString reports whether s spells a missing value under this config.
func (c *Config) IsNAString(s string) bool {
	if c == nil {
		return s == ""
	}
	for _, na := range c.NAStrings {
		if s == na {
			return true
		}
	}
	return false
}

// Validate checks the configuration for invalid settings.
func (c *Config) Validate() error {
	if c.NumThreads < 0 {
		return fmt.Errorf("num_threads must be non-negative, got %d", c.NumThreads)
	}
	if c.MinRowsPerThread < 0 {
		return fmt.Errorf("min_rows_per_thread must be non-negative, got %d", c.MinRowsPerThread)
	}
	if c.DynamicChunkRows < 0 {
		return fmt.Errorf("dynamic_chunk_rows must be non-negative, got %d", c.DynamicChunkRows)
	}
	return nil
}
