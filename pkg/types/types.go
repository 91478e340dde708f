package types

import (
	"fmt"
	"time"
)

// Store backends
const (
	StoreJSON     = "json"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds runtime configuration combining the config file, flags, and defaults
type Config struct {
	// Discovery
	Root        string   `toml:"root" validate:"required"`                    // Root of the source tree
	Ignore      []string `toml:"ignore"`                                      // Glob patterns matched against base names and relative paths
	MaxFileSize int64    `toml:"max_file_size" validate:"gt=0"`               // Larger files are skipped
	Languages   []string `toml:"languages" validate:"dive,required"`          // Restrict to these analyzer languages (empty = all)
	Parallelism int      `toml:"parallelism" validate:"min=1,max=100"`        // Max concurrent file scans
	Timeout     Duration `toml:"timeout" validate:"gt=0"`                     // Per-file scan timeout
	Debounce    Duration `toml:"debounce" validate:"gte=0"`                   // Watch mode event coalescing window
	Keywords    bool     `toml:"keywords"`                                    // Index keyword occurrences too
	Store       string   `toml:"store" validate:"oneof=json sqlite postgres"` // Index backend

	// Store locations
	IndexFile        string `toml:"index_file" validate:"required_unless=Store postgres"` // JSON or SQLite file
	ConnectionString string `toml:"connection" validate:"required_if=Store postgres"`     // PostgreSQL URI or key=value string

	// Output
	XrefDir   string `toml:"xref_dir"`                                 // Write HTML xref pages here when set
	LogFormat string `toml:"log_format" validate:"oneof=console json"` // Log output format
	Verbose   bool   `toml:"verbose"`                                  // Enable debug logging
}

// Duration is a time.Duration that decodes from a TOML string.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ConfigError represents an invalid configuration value
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Message)
	if e.Suggestion != "" {
		msg += "\n  Suggestion: " + e.Suggestion
	}
	return msg
}
