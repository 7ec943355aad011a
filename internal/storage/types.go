package storage

import (
	"time"

	"github.com/runnerr0/histmerge/internal/browser"
)

// HistoryRecord is one normalized browser visit.
//
// (Browser, URL, VisitedAt) is the record's identity. ExtractedAt is
// metadata set at ingestion and is not part of identity. A zero VisitedAt
// means the source timestamp was unavailable.
type HistoryRecord struct {
	Browser     browser.Browser
	URL         string
	Title       string
	VisitedAt   time.Time
	ExtractedAt time.Time
}

// Storable reports whether the record can be merged into the store.
func (r HistoryRecord) Storable() bool {
	return r.URL != "" && !r.VisitedAt.IsZero()
}

// HistoryQuery defines filters for reading stored records.
type HistoryQuery struct {
	Browser browser.Browser // empty means all browsers
	Limit   int
}

// DefaultQueryLimit applies when HistoryQuery.Limit is not positive.
const DefaultQueryLimit = 100

// Stats holds aggregate statistics about the history store.
type Stats struct {
	Total             int64
	PerBrowser        map[browser.Browser]int64
	OldestVisit       time.Time
	NewestVisit       time.Time
	DatabaseSizeBytes int64
}

// RunRecord is the audit entry written after each extraction run.
type RunRecord struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	TotalMerged int
	Detail      string // JSON summary of the per-browser results
}
