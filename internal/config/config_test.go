package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Empty(t, cfg.Storage.Path)
	assert.Equal(t, "history.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, 4, cfg.Storage.MaxOpenConns)
	assert.Equal(t, 5000, cfg.Storage.BusyTimeoutMS)
	assert.Equal(t, []string{"chrome", "edge", "firefox", "opera"}, cfg.Extraction.Browsers)
	assert.Equal(t, 30, cfg.Extraction.WindowDays)
	assert.Equal(t, 3000, cfg.Extraction.ChromiumLimit)
	assert.Equal(t, 2000, cfg.Extraction.FirefoxLimit)
	assert.Equal(t, 30, cfg.Extraction.BrowserTimeoutSeconds)
	assert.Equal(t, 4, cfg.Extraction.Workers)
	assert.False(t, cfg.Capture.UseDefaultDenylist)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8722, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 30*24*time.Hour, cfg.Window())
	assert.Equal(t, 30*time.Second, cfg.BrowserTimeout())
	assert.Equal(t, "127.0.0.1:8722", cfg.ServerAddr())
}

func TestDefaultDenylistIsPopulated(t *testing.T) {
	domains := DefaultDenylistDomains()
	assert.Greater(t, len(domains), 10)

	assert.Contains(t, domains, "chase.com")
	assert.Contains(t, domains, "1password.com")
	assert.Contains(t, domains, "mychart.com")

	// Stable order across calls.
	assert.Equal(t, domains, DefaultDenylistDomains())
}

func TestDenylistDomains(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capture.DenylistDomains = []string{"intranet.example"}
	assert.Equal(t, []string{"intranet.example"}, cfg.DenylistDomains())

	cfg.Capture.UseDefaultDenylist = true
	got := cfg.DenylistDomains()
	assert.Contains(t, got, "chase.com")
	assert.Equal(t, "intranet.example", got[len(got)-1])
}

func TestLoadValidYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
storage:
  path: "/var/lib/histmerge"
extraction:
  browsers: ["firefox", "chrome"]
  window_days: 7
  paths:
    firefox: "/opt/profiles/places.sqlite"
server:
  port: 9999
logging:
  level: "debug"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Extraction.WindowDays)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	browsers, err := cfg.ExtractionBrowsers()
	require.NoError(t, err)
	assert.Equal(t, []browser.Browser{browser.Firefox, browser.Chrome}, browsers)

	overrides, err := cfg.PathOverrides()
	require.NoError(t, err)
	assert.Equal(t, map[browser.Browser]string{browser.Firefox: "/opt/profiles/places.sqlite"}, overrides)

	dbPath, err := cfg.DBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/lib/histmerge", "history.db"), dbPath)

	// Non-overridden values remain defaults
	assert.Equal(t, 3000, cfg.Extraction.ChromiumLimit)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(":::not valid yaml{{{"), 0644))

	_, err := Load(cfgPath)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"unknown browser":   "extraction:\n  browsers: [brave]\n",
		"unknown path key":  "extraction:\n  paths:\n    safari: /tmp/x\n",
		"negative window":   "extraction:\n  window_days: -1\n",
		"bad log level":     "logging:\n  level: loud\n",
		"port out of range": "server:\n  port: 70000\n",
		"empty sqlite file": "storage:\n  sqlite_file: \"\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))
			_, err := Load(cfgPath)
			assert.Error(t, err)
		})
	}
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing", "config.yaml"))
	assert.Error(t, err)
}

func TestLoadOrCreateCreatesDefaultsWhenMissing(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "sub", "deep", "config.yaml")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Extraction.WindowDays)

	_, statErr := os.Stat(cfgPath)
	assert.NoError(t, statErr)

	cfg2, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Extraction, cfg2.Extraction)
}

func TestLoadOrCreateLoadsExistingFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("extraction:\n  workers: 1\n"), 0644))

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Extraction.Workers)
	assert.Equal(t, 2000, cfg.Extraction.FirefoxLimit)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvDB:       "/data/merged/all.db",
		EnvLogLevel: "DEBUG",
	}))
	require.NoError(t, err)

	dbPath, err := cfg.DBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/merged", "all.db"), dbPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnvRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(envMap(map[string]string{EnvLogLevel: "verbose"}))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	env := envMap(map[string]string{EnvConfig: "/etc/histmerge.yaml"})

	assert.Equal(t, "/tmp/flag.yaml", ResolvePath("/tmp/flag.yaml", env))
	assert.Equal(t, "/etc/histmerge.yaml", ResolvePath("", env))
	assert.Equal(t, DefaultPath(), ResolvePath("", envMap(nil)))
	assert.Equal(t, "config.yaml", filepath.Base(DefaultPath()))
}
