package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/runnerr0/histmerge/internal/reader"
	"github.com/runnerr0/histmerge/internal/storage"
)

// Report summarizes one extraction run. It is built once and not
// modified after RunExtraction returns.
type Report struct {
	RunID       string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Browsers    []BrowserReport `json:"browsers"`
	TotalMerged int             `json:"total_merged"`
}

// BrowserReport is the outcome for one browser.
type BrowserReport struct {
	Browser       browser.Browser `json:"browser"`
	Found         bool            `json:"found"`
	Path          string          `json:"path,omitempty"`
	RecordsSeen   int             `json:"records_seen"`
	RecordsMerged int             `json:"records_merged"`
	Excluded      int             `json:"excluded"`
	Error         string          `json:"error,omitempty"`
	Duration      time.Duration   `json:"-"`
	DurationMS    int64           `json:"duration_ms"`
}

// Browser returns the entry for b, or nil if b was not part of the run.
func (r *Report) Browser(b browser.Browser) *BrowserReport {
	for i := range r.Browsers {
		if r.Browsers[i].Browser == b {
			return &r.Browsers[i]
		}
	}
	return nil
}

// Probe is the transient result of locating, copying and reading one
// browser's history.
type Probe struct {
	Browser browser.Browser
	Found   bool
	Path    string
	Records []storage.HistoryRecord
	Err     error
}

// stage marks which pipeline step produced a probe error.
type stage int

const (
	stageSnapshot stage = iota
	stageRead
)

type stageError struct {
	stage stage
	err   error
}

func (e *stageError) Error() string {
	switch e.stage {
	case stageSnapshot:
		return fmt.Sprintf("snapshot: %v", e.err)
	default:
		return fmt.Sprintf("read: %v", e.err)
	}
}

func (e *stageError) Unwrap() error { return e.err }

// summarize turns a probe error into the short message shown in reports.
// The full error is logged separately.
func summarize(err error, timeout time.Duration) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timed out after %s", timeout)
	}
	var se *stageError
	if errors.As(err, &se) && se.stage == stageSnapshot {
		return "snapshot failed"
	}
	if errors.Is(err, reader.ErrSchemaMismatch) {
		return reader.ErrSchemaMismatch.Error()
	}
	return "read failed"
}
