package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/runnerr0/histmerge/internal/browser"
)

// Environment variables read by ApplyEnv and ResolvePath.
const (
	EnvConfig   = "HISTMERGE_CONFIG"
	EnvDB       = "HISTMERGE_DB"
	EnvLogLevel = "HISTMERGE_LOG_LEVEL"
)

// Config holds all histmerge configuration.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Capture    CaptureConfig    `yaml:"capture"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type StorageConfig struct {
	// Path is the directory holding the database. Empty means the XDG
	// data directory.
	Path          string `yaml:"path"`
	SQLiteFile    string `yaml:"sqlite_file"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

type ExtractionConfig struct {
	Browsers              []string          `yaml:"browsers"`
	WindowDays            int               `yaml:"window_days"`
	ChromiumLimit         int               `yaml:"chromium_limit"`
	FirefoxLimit          int               `yaml:"firefox_limit"`
	BrowserTimeoutSeconds int               `yaml:"browser_timeout_seconds"`
	Workers               int               `yaml:"workers"`
	ScratchDir            string            `yaml:"scratch_dir"`
	Paths                 map[string]string `yaml:"paths"`
}

type CaptureConfig struct {
	DenylistDomains    []string `yaml:"denylist_domains"`
	DenylistRegex      []string `yaml:"denylist_regex"`
	UseDefaultDenylist bool     `yaml:"use_default_denylist"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info or off
	File  string `yaml:"file"`  // empty logs to stderr
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML or
// fails validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// DefaultPath returns the config file location under the XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "histmerge", "config.yaml")
}

// ResolvePath picks the config file: an explicit flag value first, then
// $HISTMERGE_CONFIG, then DefaultPath.
func ResolvePath(flag string, getenv func(string) string) string {
	if flag != "" {
		return flag
	}
	if getenv != nil {
		if p := getenv(EnvConfig); p != "" {
			return p
		}
	}
	return DefaultPath()
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	return LoadOrCreateAt(DefaultPath())
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}

// ApplyEnv overrides file settings from the environment.
// $HISTMERGE_DB names the database file; $HISTMERGE_LOG_LEVEL the level.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	if p := getenv(EnvDB); p != "" {
		p, err := expandPath(p)
		if err != nil {
			return err
		}
		c.Storage.Path = filepath.Dir(p)
		c.Storage.SQLiteFile = filepath.Base(p)
	}
	if lvl := getenv(EnvLogLevel); lvl != "" {
		c.Logging.Level = strings.ToLower(lvl)
	}
	return c.Validate()
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Storage.SQLiteFile == "" {
		return fmt.Errorf("storage.sqlite_file must not be empty")
	}
	if _, err := c.ExtractionBrowsers(); err != nil {
		return fmt.Errorf("extraction.browsers: %w", err)
	}
	if _, err := c.PathOverrides(); err != nil {
		return fmt.Errorf("extraction.paths: %w", err)
	}
	if c.Extraction.WindowDays < 0 {
		return fmt.Errorf("extraction.window_days must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "off":
	default:
		return fmt.Errorf("logging.level %q (want debug, info or off)", c.Logging.Level)
	}
	return nil
}

// DBPath returns the absolute location of the history database.
func (c *Config) DBPath() (string, error) {
	if c.Storage.Path == "" {
		p, err := xdg.DataFile(filepath.Join("histmerge", c.Storage.SQLiteFile))
		if err != nil {
			return "", fmt.Errorf("resolving data directory: %w", err)
		}
		return p, nil
	}
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// ExtractionBrowsers returns the configured browsers, or all of them when
// the list is empty.
func (c *Config) ExtractionBrowsers() ([]browser.Browser, error) {
	if len(c.Extraction.Browsers) == 0 {
		return browser.All(), nil
	}
	return browser.ParseList(c.Extraction.Browsers)
}

// PathOverrides returns the per-browser history file overrides.
func (c *Config) PathOverrides() (map[browser.Browser]string, error) {
	out := make(map[browser.Browser]string, len(c.Extraction.Paths))
	for name, p := range c.Extraction.Paths {
		b, err := browser.Parse(name)
		if err != nil {
			return nil, err
		}
		if p == "" {
			continue
		}
		expanded, err := expandPath(p)
		if err != nil {
			return nil, err
		}
		out[b] = expanded
	}
	return out, nil
}

// Window returns the extraction look-back period.
func (c *Config) Window() time.Duration {
	return time.Duration(c.Extraction.WindowDays) * 24 * time.Hour
}

// BrowserTimeout returns the per-browser pipeline bound.
func (c *Config) BrowserTimeout() time.Duration {
	return time.Duration(c.Extraction.BrowserTimeoutSeconds) * time.Second
}

// DenylistDomains returns the configured domains, preceded by the
// built-in list when enabled.
func (c *Config) DenylistDomains() []string {
	var out []string
	if c.Capture.UseDefaultDenylist {
		out = append(out, DefaultDenylistDomains()...)
	}
	return append(out, c.Capture.DenylistDomains...)
}

// ServerAddr returns host:port for the HTTP API.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
