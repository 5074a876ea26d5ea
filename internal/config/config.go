// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level" toml:"log_level"` // debug, info, warn, error

	// Oracle selects the macro/version oracle: auto, rpm, builtin, none.
	Oracle    string `yaml:"oracle" toml:"oracle"`
	RPMBinary string `yaml:"rpm_binary" toml:"rpm_binary"`

	PythonVersion string `yaml:"python_version" toml:"python_version"`
	InfoFile      string `yaml:"info_file" toml:"info_file"`

	Journal struct {
		Enabled   bool   `yaml:"enabled" toml:"enabled"`
		Path      string `yaml:"path" toml:"path"`
		CacheSize int    `yaml:"cache_size" toml:"cache_size"`
		// Keep bounds the snapshots kept per spec file; 0 keeps all
		Keep int `yaml:"keep" toml:"keep"`
	} `yaml:"journal" toml:"journal"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{
		LogLevel:      "warn",
		Oracle:        "auto",
		RPMBinary:     "rpm",
		PythonVersion: "3",
		InfoFile:      "rdo.yml",
	}
	cfg.Journal.Enabled = true
	cfg.Journal.Path = defaultJournalPath()
	cfg.Journal.CacheSize = 64
	cfg.Journal.Keep = 50
	return cfg
}

func defaultJournalPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".rdopkg", "journal")
	}
	return filepath.Join(dir, "rdopkg", "journal")
}

// Path returns the config file location, honouring RDOPKG_CONFIG.
func Path() string {
	if p := os.Getenv("RDOPKG_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".rdopkg.yaml"
	}
	return filepath.Join(dir, "rdopkg", "config.yaml")
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Oracle {
	case "auto", "rpm", "builtin", "none":
	default:
		return fmt.Errorf("unknown oracle %q (want auto, rpm, builtin or none)", c.Oracle)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	if c.Journal.Keep < 0 {
		return fmt.Errorf("journal.keep must not be negative")
	}
	if c.Journal.CacheSize <= 0 {
		c.Journal.CacheSize = 64
	}
	return nil
}
