package cli

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/runnerr0/histmerge/internal/harvest"
	"github.com/runnerr0/histmerge/internal/storage"
	"github.com/runnerr0/histmerge/internal/timeconv"
	"github.com/stretchr/testify/require"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// setupStore opens a migrated store in a temp directory and returns it
// with its database path.
func setupStore(t *testing.T) (*storage.SQLiteStore, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	db, err := storage.Open(context.Background(), dbPath, storage.OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := storage.NewSQLiteStore(db, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dbPath
}

// mapLocator resolves browsers from a fixed table.
type mapLocator map[browser.Browser]string

func (m mapLocator) Resolve(b browser.Browser) (string, bool) {
	p, ok := m[b]
	return p, ok
}

func newTestHarvester(store storage.Store, loc mapLocator) *harvest.Harvester {
	return harvest.New(store, loc, harvest.Options{}, quietLogger())
}

// seed merges records directly into the store.
func seed(t *testing.T, store storage.Store, b browser.Browser, records ...storage.HistoryRecord) {
	t.Helper()
	_, err := store.Upsert(context.Background(), b, records)
	require.NoError(t, err)
}

func rec(url, title string, visited time.Time) storage.HistoryRecord {
	return storage.HistoryRecord{URL: url, Title: title, VisitedAt: visited}
}

// writeChromiumHistory creates a Chromium "History" file with one visit
// per url, each a minute older than the last, starting at newest.
func writeChromiumHistory(t *testing.T, newest time.Time, urls ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "History")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE urls (id INTEGER PRIMARY KEY, url LONGVARCHAR, title LONGVARCHAR, last_visit_time INTEGER)`)
	require.NoError(t, err)
	for i, u := range urls {
		ts := timeconv.ToChromium(newest.Add(-time.Duration(i) * time.Minute))
		_, err := db.Exec(`INSERT INTO urls (url, title, last_visit_time) VALUES (?, ?, ?)`, u, "Title "+u, ts)
		require.NoError(t, err)
	}
	return path
}
