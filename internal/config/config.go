// Package config provides configuration for the Webside browser.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds browser configuration.
type Config struct {
	// BackendURL is the Webside server (e.g., "http://localhost:9001").
	// Normally taken from the credential store.
	BackendURL string `yaml:"-"`
	// Developer is the author stamped on changes.
	Developer string `yaml:"-"`
	// Timeout bounds every backend request.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
	// JournalPath is the sqlite file of the local change journal.
	JournalPath string `yaml:"journalPath"`
	// PackageFilter is a glob hiding matching packages from the tree.
	PackageFilter string `yaml:"packageFilter"`
	// LinkConcurrency bounds class lookups while computing document links.
	LinkConcurrency int `yaml:"linkConcurrency"`
}

// Dir returns ~/.webside.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".webside")
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		LogLevel:        "warn",
		JournalPath:     filepath.Join(Dir(), "journal.db"),
		LinkConcurrency: 8,
	}
}

// FromEnv creates a Config from defaults and environment variables.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BackendURL = getEnv("WEBSIDE_URL", c.BackendURL)
	c.Developer = getEnv("WEBSIDE_DEVELOPER", c.Developer)
	c.Timeout = getEnvDuration("WEBSIDE_TIMEOUT", c.Timeout)
	c.LogLevel = getEnv("WEBSIDE_LOG_LEVEL", c.LogLevel)
	c.JournalPath = getEnv("WEBSIDE_JOURNAL", c.JournalPath)
	c.LinkConcurrency = getEnvInt("WEBSIDE_LINK_CONCURRENCY", c.LinkConcurrency)
}

// Validate checks the values that have a fixed domain.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s", c.Timeout)
	}
	if c.LinkConcurrency < 0 {
		return fmt.Errorf("invalid linkConcurrency %d", c.LinkConcurrency)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}

// Save writes the file-backed settings to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
