package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/runnerr0/histmerge/internal/config"
	"github.com/runnerr0/histmerge/internal/harvest"
	"github.com/runnerr0/histmerge/internal/locate"
	"github.com/runnerr0/histmerge/internal/storage"
)

// app bundles what a command needs once configuration is loaded.
type app struct {
	cfg       *config.Config
	dbPath    string
	logger    *log.Logger
	db        *sql.DB
	store     *storage.SQLiteStore
	harvester *harvest.Harvester

	closeLog func() error
}

// loadConfig reads the config file (creating it with defaults on first
// use) and applies environment and flag overrides.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	path := config.ResolvePath(globals.Config, os.Getenv)
	cfg, err := config.LoadOrCreateAt(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	if globals.DBPath != "" {
		cfg.Storage.Path = filepath.Dir(globals.DBPath)
		cfg.Storage.SQLiteFile = filepath.Base(globals.DBPath)
	}
	if globals.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger. "off" discards output; "debug"
// adds source locations and microseconds.
func newLogger(cfg config.LoggingConfig) (*log.Logger, func() error, error) {
	var out io.Writer = os.Stderr
	closeFn := func() error { return nil }

	if cfg.File != "" && cfg.Level != "off" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}

	switch cfg.Level {
	case "off":
		return log.New(io.Discard, "", 0), closeFn, nil
	case "debug":
		return log.New(out, "histmerge: ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), closeFn, nil
	default:
		return log.New(out, "histmerge: ", log.LstdFlags), closeFn, nil
	}
}

// openApp loads configuration, opens the store and wires the
// harvester. Callers must Close the result.
func openApp(ctx context.Context, globals *GlobalFlags) (*app, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closeLog: closeLog}

	a.dbPath, err = cfg.DBPath()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.db, err = storage.Open(ctx, a.dbPath, storage.OpenOptions{
		BusyTimeoutMS: cfg.Storage.BusyTimeoutMS,
		MaxOpenConns:  cfg.Storage.MaxOpenConns,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store, err = storage.NewSQLiteStore(a.db, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	a.harvester, err = newHarvester(cfg, a.store, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the store, the database and the log file.
func (a *app) Close() error {
	if a.store != nil {
		a.store.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.closeLog != nil {
		return a.closeLog()
	}
	return nil
}

// newHarvester wires the pipeline from configuration.
func newHarvester(cfg *config.Config, store storage.Store, logger *log.Logger) (*harvest.Harvester, error) {
	browsers, err := cfg.ExtractionBrowsers()
	if err != nil {
		return nil, err
	}
	overrides, err := cfg.PathOverrides()
	if err != nil {
		return nil, err
	}
	deny, err := harvest.NewDenylist(cfg.DenylistDomains(), cfg.Capture.DenylistRegex)
	if err != nil {
		return nil, err
	}

	return harvest.New(store, locate.NewResolver(overrides), harvest.Options{
		Browsers:       browsers,
		Window:         cfg.Window(),
		ChromiumLimit:  cfg.Extraction.ChromiumLimit,
		FirefoxLimit:   cfg.Extraction.FirefoxLimit,
		BrowserTimeout: cfg.BrowserTimeout(),
		Workers:        cfg.Extraction.Workers,
		ScratchDir:     cfg.Extraction.ScratchDir,
		Denylist:       deny,
	}, logger), nil
}

// selectBrowsers narrows the default list to the names given on the
// command line, if any.
func selectBrowsers(names []string, defaults []browser.Browser) ([]browser.Browser, error) {
	if len(names) == 0 {
		return defaults, nil
	}
	return browser.ParseList(names)
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	result.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		result.WriteString(",")
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// plural picks the singular or plural form of word for n.
func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
