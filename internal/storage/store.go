package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/runnerr0/histmerge/internal/browser"
)

// Store defines the history persistence operations. Upsert is the only
// path that writes history rows.
type Store interface {
	Upsert(ctx context.Context, b browser.Browser, records []HistoryRecord) (int, error)
	Query(ctx context.Context, q HistoryQuery) ([]HistoryRecord, error)
	Stats(ctx context.Context) (*Stats, error)
	RecordRun(ctx context.Context, run *RunRecord) error
	LastRun(ctx context.Context) (*RunRecord, error)
	Close() error
}

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("history store is closed")

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time

	// Prepared statements
	upsert    *sql.Stmt
	insertRun *sql.Stmt
	lastRun   *sql.Stmt

	// mu is held shared by every operation and exclusively by Close, so
	// Close waits for in-flight work before releasing statements.
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and
// migrated database. A nil logger uses the standard logger.
func NewSQLiteStore(db *sql.DB, logger *log.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := &SQLiteStore{db: db, logger: logger, now: time.Now}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	// Conflicts on the identity keep the row and take the newer title
	// and extraction time: last writer wins.
	s.upsert, err = s.db.Prepare(`
		INSERT INTO history (browser, url, title, visited_at, extracted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(browser, url, visited_at) DO UPDATE SET
			title        = excluded.title,
			extracted_at = excluded.extracted_at
	`)
	if err != nil {
		return err
	}

	s.insertRun, err = s.db.Prepare(`
		INSERT INTO extraction_runs (id, started_at, finished_at, total_merged, detail)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.lastRun, err = s.db.Prepare(`
		SELECT id, started_at, finished_at, total_merged, detail
		FROM extraction_runs ORDER BY started_at DESC LIMIT 1
	`)
	if err != nil {
		return err
	}

	return nil
}

// formatTime renders t as an RFC 3339 UTC string at second precision.
// Stored strings sort in time order.
func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// runTimeLayout is fixed-width so run timestamps sort lexically.
const runTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// parseTimestamp tries the formats the store has written.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// Upsert merges records for browser b in one transaction, in input order.
// New identities are inserted; existing ones get the new title and
// extraction time. Records without a URL or visit time are skipped and
// not counted. A record that fails to write is logged and skipped; only
// transaction failures are returned.
func (s *SQLiteStore) Upsert(ctx context.Context, b browser.Browser, records []HistoryRecord) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	if len(records) == 0 {
		return 0, nil
	}

	extractedAt := formatTime(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.upsert)
	defer stmt.Close()

	merged, failed := 0, 0
	for _, r := range records {
		if !r.Storable() {
			continue
		}
		_, err := stmt.ExecContext(ctx, string(b), r.URL, r.Title, formatTime(r.VisitedAt), extractedAt)
		if err != nil {
			if ctx.Err() != nil {
				return 0, fmt.Errorf("upsert %s: %w", b, ctx.Err())
			}
			failed++
			s.logger.Printf("upsert %s %q: %v", b, r.URL, err)
			continue
		}
		merged++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}

	if failed > 0 {
		s.logger.Printf("%s: %d merged, %d failed", b, merged, failed)
	}
	return merged, nil
}

// Query returns stored records, most recent visit first. Records sharing
// a visit time keep their insertion order.
func (s *SQLiteStore) Query(ctx context.Context, q HistoryQuery) ([]HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if q.Limit <= 0 {
		q.Limit = DefaultQueryLimit
	}

	query := `SELECT browser, url, title, visited_at, extracted_at FROM history`
	var args []interface{}
	if q.Browser != "" {
		query += ` WHERE browser = ?`
		args = append(args, string(q.Browser))
	}
	query += ` ORDER BY visited_at DESC, id ASC LIMIT ?`
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := []HistoryRecord{}
	for rows.Next() {
		var r HistoryRecord
		var b, visited, extracted string
		if err := rows.Scan(&b, &r.URL, &r.Title, &visited, &extracted); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		r.Browser = browser.Browser(b)
		r.VisitedAt, _ = parseTimestamp(visited)
		r.ExtractedAt, _ = parseTimestamp(extracted)
		records = append(records, r)
	}

	return records, rows.Err()
}

// Stats computes aggregate counts on demand.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	stats := &Stats{PerBrowser: map[browser.Browser]int64{}}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&stats.Total)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}

	if stats.Total > 0 {
		var oldest, newest string
		err = s.db.QueryRowContext(ctx, "SELECT MIN(visited_at), MAX(visited_at) FROM history").Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("visit time range: %w", err)
		}
		stats.OldestVisit, _ = parseTimestamp(oldest)
		stats.NewestVisit, _ = parseTimestamp(newest)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT browser, COUNT(*) FROM history GROUP BY browser")
	if err != nil {
		return nil, fmt.Errorf("count per browser: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b string
		var n int64
		if err := rows.Scan(&b, &n); err != nil {
			return nil, err
		}
		stats.PerBrowser[browser.Browser(b)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.DatabaseSizeBytes = s.databaseSize(ctx)
	return stats, nil
}

// databaseSize queries page_count * page_size, which works for both
// on-disk and in-memory databases.
func (s *SQLiteStore) databaseSize(ctx context.Context) int64 {
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// RecordRun appends an extraction run to the audit log.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *RunRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.insertRun.ExecContext(ctx,
		run.ID, run.StartedAt.UTC().Format(runTimeLayout), run.FinishedAt.UTC().Format(runTimeLayout),
		run.TotalMerged, run.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// LastRun returns the most recent extraction run, or nil if none exists.
func (s *SQLiteStore) LastRun(ctx context.Context) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	var r RunRecord
	var started, finished string
	err := s.lastRun.QueryRowContext(ctx).Scan(&r.ID, &started, &finished, &r.TotalMerged, &r.Detail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last run: %w", err)
	}
	r.StartedAt, _ = time.Parse(runTimeLayout, started)
	r.FinishedAt, _ = time.Parse(runTimeLayout, finished)
	return &r, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, stmt := range []*sql.Stmt{s.upsert, s.insertRun, s.lastRun} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
