package reader

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/runnerr0/histmerge/internal/timeconv"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func nowFn() time.Time { return fixedNow }

func daysAgo(d float64) time.Time {
	return fixedNow.Add(-time.Duration(d * float64(24*time.Hour)))
}

type chromiumRow struct {
	url   interface{}
	title interface{}
	ts    interface{}
}

// newChromiumDB writes a minimal Chromium "History" database.
func newChromiumDB(t *testing.T, rows []chromiumRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "History")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url LONGVARCHAR,
		title LONGVARCHAR,
		visit_count INTEGER DEFAULT 0 NOT NULL,
		typed_count INTEGER DEFAULT 0 NOT NULL,
		last_visit_time INTEGER,
		hidden INTEGER DEFAULT 0 NOT NULL
	)`)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	for _, r := range rows {
		_, err := tx.Exec(`INSERT INTO urls (url, title, last_visit_time) VALUES (?, ?, ?)`, r.url, r.title, r.ts)
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())
	return path
}

func chromeTS(t time.Time) int64 { return timeconv.ToChromium(t) }

type firefoxVisit struct {
	url       interface{}
	title     interface{}
	visitDate interface{}
}

// newFirefoxDB writes a minimal places.sqlite with one place per visit.
func newFirefoxDB(t *testing.T, visits []firefoxVisit) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "places.sqlite")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE moz_places (
			id INTEGER PRIMARY KEY,
			url LONGVARCHAR,
			title LONGVARCHAR,
			visit_count INTEGER DEFAULT 0,
			last_visit_date INTEGER
		);
		CREATE TABLE moz_historyvisits (
			id INTEGER PRIMARY KEY,
			from_visit INTEGER,
			place_id INTEGER,
			visit_date INTEGER,
			visit_type INTEGER
		);
	`)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	places := map[interface{}]int64{}
	for _, v := range visits {
		id, ok := places[v.url]
		if !ok {
			res, err := tx.Exec(`INSERT INTO moz_places (url, title) VALUES (?, ?)`, v.url, v.title)
			require.NoError(t, err)
			id, err = res.LastInsertId()
			require.NoError(t, err)
			places[v.url] = id
		}
		_, err := tx.Exec(`INSERT INTO moz_historyvisits (place_id, visit_date, visit_type) VALUES (?, ?, 1)`, id, v.visitDate)
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit())
	return path
}

func firefoxTS(t time.Time) int64 { return timeconv.ToFirefox(t) }
