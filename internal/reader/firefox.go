package reader

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/runnerr0/histmerge/internal/storage"
	"github.com/runnerr0/histmerge/internal/timeconv"
)

// FirefoxReader reads places.sqlite, joining moz_places (url, title) with
// moz_historyvisits (one row per visit). The window is pushed into the
// query as a lower bound on visit_date.
type FirefoxReader struct {
	Browser browser.Browser
	Options
}

func (r *FirefoxReader) Read(ctx context.Context, path string) ([]storage.HistoryRecord, error) {
	db, err := openSnapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := requireColumns(ctx, db, "moz_places", "id", "url", "title"); err != nil {
		return nil, err
	}
	if err := requireColumns(ctx, db, "moz_historyvisits", "place_id", "visit_date"); err != nil {
		return nil, err
	}

	since := timeconv.ToFirefox(r.now().Add(-r.window()))

	rows, err := db.QueryContext(ctx, `
		SELECT p.url, p.title, v.visit_date
		FROM moz_places p
		JOIN moz_historyvisits v ON p.id = v.place_id
		WHERE v.visit_date >= ?
		ORDER BY v.visit_date DESC
		LIMIT ?`,
		since, r.limit(DefaultFirefoxLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	records := []storage.HistoryRecord{}
	for rows.Next() {
		var url, title sql.NullString
		var visitDate sql.NullInt64
		if err := rows.Scan(&url, &title, &visitDate); err != nil {
			return nil, fmt.Errorf("scan visits: %w", err)
		}
		if !visitDate.Valid || visitDate.Int64 == 0 {
			continue
		}
		if url.String == "" {
			continue
		}
		// An unconvertible date keeps the row with VisitedAt unavailable;
		// the store skips such records.
		visited, _ := timeconv.FromFirefox(visitDate.Int64)
		records = append(records, storage.HistoryRecord{
			Browser:   r.Browser,
			URL:       url.String,
			Title:     title.String,
			VisitedAt: visited,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read visits: %w", err)
	}

	return records, nil
}
