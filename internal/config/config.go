package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config is the run configuration read from annoscene.yaml.
type Config struct {
	// Overwrite makes insert replace annotations already present in a class
	// file instead of keeping them.
	Overwrite bool `yaml:"overwrite"`

	Log   LogConfig   `yaml:"log"`
	Store StoreConfig `yaml:"store"`
	Print PrintConfig `yaml:"print"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty"`

	// Format is text, json, or auto (text on a terminal, json otherwise).
	Format string `yaml:"format,omitempty"`
}

type StoreConfig struct {
	// Path is the SQLite database file, relative to the config file.
	Path string `yaml:"path,omitempty"`
}

type PrintConfig struct {
	// Indent is the number of spaces per nesting level in printed index files.
	Indent int `yaml:"indent,omitempty"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults("")
	return cfg
}

// LoadConfig reads and parses an annoscene.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses annoscene.yaml content from bytes.
// The path argument is used for error messages and to resolve the store
// path.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults(filepath.Dir(path))
	return &cfg, nil
}

// FindConfig searches for annoscene.yaml starting from dir and walking up
// to parent directories. It returns "" and a nil error when there is none.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if c.Log.Level != "" && !slices.Contains(logLevels, c.Log.Level) {
		return fmt.Errorf("%s: log.level %q must be one of %v", path, c.Log.Level, logLevels)
	}
	if c.Log.Format != "" && !slices.Contains(logFormats, c.Log.Format) {
		return fmt.Errorf("%s: log.format %q must be one of %v", path, c.Log.Format, logFormats)
	}
	if c.Print.Indent < 0 || c.Print.Indent > 16 {
		return fmt.Errorf("%s: print.indent %d out of range 0..16", path, c.Print.Indent)
	}
	return nil
}

// setDefaults fills in omitted fields. A relative store path is taken
// relative to dir.
func (c *Config) setDefaults(dir string) {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if dir != "" && !filepath.IsAbs(c.Store.Path) {
		c.Store.Path = filepath.Join(dir, c.Store.Path)
	}
	if c.Print.Indent == 0 {
		c.Print.Indent = DefaultPrintIndent
	}
}
