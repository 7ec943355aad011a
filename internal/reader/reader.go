// Package reader parses browser history snapshots into HistoryRecords.
package reader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/runnerr0/histmerge/internal/storage"
)

const (
	// DefaultWindow is how far back a read looks.
	DefaultWindow = 30 * 24 * time.Hour

	DefaultChromiumLimit = 3000
	DefaultFirefoxLimit  = 2000
)

// ErrSchemaMismatch is returned when a snapshot lacks the expected tables
// or columns, e.g. after a browser changed its history schema.
var ErrSchemaMismatch = errors.New("unexpected history schema")

// Reader reads normalized records out of a history database snapshot.
// Records are returned most recent first.
type Reader interface {
	Read(ctx context.Context, path string) ([]storage.HistoryRecord, error)
}

// Options bound a single read.
type Options struct {
	Limit  int              // maximum rows; 0 uses the family default
	Window time.Duration    // 0 uses DefaultWindow
	Now    func() time.Time // nil uses time.Now
}

// For returns the reader for b's history format.
func For(b browser.Browser, opts Options) Reader {
	if b.Family() == browser.Gecko {
		return &FirefoxReader{Browser: b, Options: opts}
	}
	return &ChromiumReader{Browser: b, Options: opts}
}

func (o Options) limit(def int) int {
	if o.Limit > 0 {
		return o.Limit
	}
	return def
}

func (o Options) window() time.Duration {
	if o.Window > 0 {
		return o.Window
	}
	return DefaultWindow
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// openSnapshot opens a private snapshot copy. Only SELECTs are issued,
// but the copy is opened read-write: with a copied -wal present SQLite
// must create the -shm index next to it to read the log. The snapshot
// owner removes those sidecars.
func openSnapshot(ctx context.Context, path string) (*sql.DB, error) {
	// sql.Open would silently create a missing file.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=2000")
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return db, nil
}

// requireColumns checks that table exists and has every listed column.
func requireColumns(ctx context.Context, db *sql.DB, table string, want ...string) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	have := map[string]bool{}
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    interface{}
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspect %s: %w", table, err)
		}
		have[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}

	if len(have) == 0 {
		return fmt.Errorf("table %s missing: %w", table, ErrSchemaMismatch)
	}
	var missing []string
	for _, c := range want {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s lacks %s: %w", table, strings.Join(missing, ", "), ErrSchemaMismatch)
	}
	return nil
}
