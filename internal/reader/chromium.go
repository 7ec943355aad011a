package reader

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/runnerr0/histmerge/internal/storage"
	"github.com/runnerr0/histmerge/internal/timeconv"
)

// ChromiumReader reads the "urls" table shared by Chrome, Edge and Opera.
//
// The newest Limit rows are fetched and the time window is applied
// afterwards: last_visit_time is indexed for ordering, so scanning the
// recent head is cheap.
type ChromiumReader struct {
	Browser browser.Browser
	Options
}

func (r *ChromiumReader) Read(ctx context.Context, path string) ([]storage.HistoryRecord, error) {
	db, err := openSnapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := requireColumns(ctx, db, "urls", "url", "title", "last_visit_time"); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT url, title, last_visit_time FROM urls ORDER BY last_visit_time DESC LIMIT ?`,
		r.limit(DefaultChromiumLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("query urls: %w", err)
	}
	defer rows.Close()

	cutoff := timeconv.ToChromium(r.now().Add(-r.window()))

	records := []storage.HistoryRecord{}
	for rows.Next() {
		var url, title sql.NullString
		var ts sql.NullInt64
		if err := rows.Scan(&url, &title, &ts); err != nil {
			return nil, fmt.Errorf("scan urls: %w", err)
		}
		if !ts.Valid || ts.Int64 <= 0 || ts.Int64 < cutoff {
			continue
		}
		if url.String == "" {
			continue
		}
		// Past the supported range the row is kept with VisitedAt
		// unavailable; the store skips it.
		visited, _ := timeconv.FromChromium(ts.Int64)
		records = append(records, storage.HistoryRecord{
			Browser:   r.Browser,
			URL:       url.String,
			Title:     title.String,
			VisitedAt: visited,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}

	return records, nil
}
