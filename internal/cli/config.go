package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cybertec-postgresql/rbxref/internal/discovery"
	"github.com/cybertec-postgresql/rbxref/pkg/types"
)

// Config is an alias for the shared Config type
type Config = types.Config

// ConfigError is an alias for the shared ConfigError type
type ConfigError = types.ConfigError

// ConfigFileName is looked up in the source root when no --config is given.
const ConfigFileName = ".rbxref.toml"

// DefaultConfig provides default configuration values
func DefaultConfig() *Config {
	return &Config{
		Root:        ".",
		Ignore:      append([]string(nil), discovery.DefaultIgnore...),
		MaxFileSize: 1 << 20,
		Parallelism: 4,
		Timeout:     types.Duration(30 * time.Second),
		Debounce:    types.Duration(200 * time.Millisecond),
		Store:       types.StoreJSON,
		LogFormat:   "console",
	}
}

// Flags carries command-line values. Zero values leave the configuration
// untouched.
type Flags struct {
	ConfigFile  string
	Store       string
	IndexFile   string
	Connection  string
	XrefDir     string
	LogFormat   string
	Languages   []string
	Ignore      []string // added to the configured patterns
	MaxFileSize int64
	Parallel    int
	Timeout     time.Duration
	Debounce    time.Duration
	Keywords    bool
	Verbose     bool
}

// LoadConfig builds the configuration of the tree at root: defaults, then
// the config file, then flags. The result is not validated.
func LoadConfig(root string, flags Flags) (*Config, error) {
	cfg := DefaultConfig()
	if root != "" {
		cfg.Root = root
	}

	path := flags.ConfigFile
	if path == "" {
		candidate := filepath.Join(cfg.Root, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		if err := LoadConfigFile(cfg, path); err != nil {
			return nil, err
		}
		// The file must not move the tree it was found in
		if root != "" {
			cfg.Root = root
		}
	}

	ApplyFlagsToConfig(cfg, flags)
	finalize(cfg)
	return cfg, nil
}

// LoadConfigFile decodes a TOML file over cfg. Unknown keys are rejected.
func LoadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return &ConfigError{
			Field:      "config",
			Value:      path,
			Message:    err.Error(),
			Suggestion: "Check the TOML syntax of " + path,
		}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return &ConfigError{
			Field:      "config",
			Value:      path,
			Message:    "unknown keys: " + strings.Join(keys, ", "),
			Suggestion: "Remove or rename the keys; see rbxref index --help",
		}
	}
	return nil
}

// ApplyFlagsToConfig applies command-line flag values to configuration
func ApplyFlagsToConfig(c *Config, f Flags) {
	if f.Store != "" {
		c.Store = f.Store
	}
	if f.IndexFile != "" {
		c.IndexFile = f.IndexFile
	}
	if f.Connection != "" {
		c.ConnectionString = f.Connection
	}
	if f.XrefDir != "" {
		c.XrefDir = f.XrefDir
	}
	if f.LogFormat != "" {
		c.LogFormat = f.LogFormat
	}
	if len(f.Languages) > 0 {
		c.Languages = f.Languages
	}
	c.Ignore = append(c.Ignore, f.Ignore...)
	if f.MaxFileSize != 0 {
		c.MaxFileSize = f.MaxFileSize
	}
	if f.Parallel != 0 {
		c.Parallelism = f.Parallel
	}
	if f.Timeout != 0 {
		c.Timeout = types.Duration(f.Timeout)
	}
	if f.Debounce != 0 {
		c.Debounce = types.Duration(f.Debounce)
	}
	c.Keywords = c.Keywords || f.Keywords
	c.Verbose = c.Verbose || f.Verbose
}

// finalize fills in the index location for local stores.
func finalize(c *Config) {
	if c.IndexFile != "" || c.Store == types.StorePostgres {
		return
	}
	name := "index.json"
	if c.Store == types.StoreSQLite {
		name = "index.db"
	}
	c.IndexFile = filepath.Join(c.Root, ".rbxref", name)
}

// describeStore names the index location for user messages.
func describeStore(c *Config) string {
	if c.Store == types.StorePostgres {
		return "postgres"
	}
	return fmt.Sprintf("%s (%s)", c.IndexFile, c.Store)
}
