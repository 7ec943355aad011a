// Package harvest runs the extract-and-merge pipeline across browsers and
// answers queries over the merged history.
package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/runnerr0/histmerge/internal/reader"
	"github.com/runnerr0/histmerge/internal/snapshot"
	"github.com/runnerr0/histmerge/internal/storage"
)

// DefaultBrowserTimeout bounds snapshot plus read for one browser.
const DefaultBrowserTimeout = 30 * time.Second

// Locator finds a browser's history file.
type Locator interface {
	Resolve(b browser.Browser) (string, bool)
}

// Options configure a Harvester. Zero values select defaults.
type Options struct {
	Browsers       []browser.Browser // nil means browser.All()
	Window         time.Duration
	ChromiumLimit  int
	FirefoxLimit   int
	BrowserTimeout time.Duration
	Workers        int    // concurrent browser pipelines; 0 means one per browser
	ScratchDir     string // where snapshots are written; "" is the system temp dir
	Denylist       *Denylist
	Now            func() time.Time
}

// Harvester owns the pipeline dependencies. The store handle is created
// once by the caller and shared for the life of the process.
type Harvester struct {
	store   storage.Store
	locator Locator
	opts    Options
	logger  *log.Logger

	readerFor func(b browser.Browser) reader.Reader
}

// New returns a Harvester. A nil logger uses the standard logger.
func New(store storage.Store, locator Locator, opts Options, logger *log.Logger) *Harvester {
	if logger == nil {
		logger = log.Default()
	}
	if len(opts.Browsers) == 0 {
		opts.Browsers = browser.All()
	}
	if opts.BrowserTimeout <= 0 {
		opts.BrowserTimeout = DefaultBrowserTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = len(opts.Browsers)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	h := &Harvester{store: store, locator: locator, opts: opts, logger: logger}
	h.readerFor = h.defaultReader
	return h
}

func (h *Harvester) defaultReader(b browser.Browser) reader.Reader {
	ro := reader.Options{Window: h.opts.Window, Now: h.opts.Now}
	if b.Family() == browser.Gecko {
		ro.Limit = h.opts.FirefoxLimit
	} else {
		ro.Limit = h.opts.ChromiumLimit
	}
	return reader.For(b, ro)
}

// RunExtraction locates, snapshots and reads every configured browser
// concurrently and merges the results into the store.
//
// Per-browser failures are recorded in the report. A store failure aborts
// the run and is returned.
func (h *Harvester) RunExtraction(ctx context.Context) (*Report, error) {
	started := h.opts.Now()
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: started.UTC(),
		Browsers:  make([]BrowserReport, len(h.opts.Browsers)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.Workers)

	for i, b := range h.opts.Browsers {
		i, b := i, b
		g.Go(func() error {
			br, err := h.pipeline(gctx, b)
			report.Browsers[i] = br
			return err
		})
	}

	if err := g.Wait(); err != nil {
		h.logger.Printf("extraction %s aborted: %v", report.RunID, err)
		return nil, err
	}

	for _, br := range report.Browsers {
		report.TotalMerged += br.RecordsMerged
	}
	report.FinishedAt = h.opts.Now().UTC()

	h.recordRun(ctx, report)
	return report, nil
}

// pipeline runs one browser end to end. Only store errors are returned.
func (h *Harvester) pipeline(ctx context.Context, b browser.Browser) (br BrowserReport, err error) {
	start := time.Now()
	br.Browser = b
	defer func() {
		br.Duration = time.Since(start)
		br.DurationMS = br.Duration.Milliseconds()
	}()

	probe := h.probe(ctx, b)
	br.Found = probe.Found
	br.Path = probe.Path
	br.RecordsSeen = len(probe.Records)

	if probe.Err != nil {
		br.Error = summarize(probe.Err, h.opts.BrowserTimeout)
		h.logger.Printf("%s: %s: %v", b, probe.Path, probe.Err)
		return br, nil
	}
	if !probe.Found {
		return br, nil
	}

	kept := make([]storage.HistoryRecord, 0, len(probe.Records))
	for _, r := range probe.Records {
		if h.opts.Denylist.Excludes(r.URL) {
			br.Excluded++
			continue
		}
		kept = append(kept, r)
	}

	merged, err := h.store.Upsert(ctx, b, kept)
	if err != nil {
		return br, fmt.Errorf("merge %s: %w", b, err)
	}
	br.RecordsMerged = merged
	return br, nil
}

// probe locates b and reads its history through a private snapshot.
func (h *Harvester) probe(ctx context.Context, b browser.Browser) Probe {
	p := Probe{Browser: b}
	path, ok := h.locator.Resolve(b)
	if !ok {
		return p
	}
	p.Found = true
	p.Path = path

	ctx, cancel := context.WithTimeout(ctx, h.opts.BrowserTimeout)
	defer cancel()

	snap, err := snapshot.Take(ctx, path, h.opts.ScratchDir)
	if err != nil {
		p.Err = &stageError{stage: stageSnapshot, err: err}
		return p
	}
	defer func() {
		if err := snap.Remove(); err != nil {
			h.logger.Printf("%s: remove snapshot: %v", b, err)
		}
	}()

	records, err := h.readerFor(b).Read(ctx, snap.Path())
	if err != nil {
		p.Err = &stageError{stage: stageRead, err: err}
		return p
	}
	p.Records = records
	return p
}

// recordRun writes the audit entry. Failure is logged; the merge itself
// already committed.
func (h *Harvester) recordRun(ctx context.Context, report *Report) {
	detail, err := json.Marshal(report.Browsers)
	if err != nil {
		h.logger.Printf("encode run %s: %v", report.RunID, err)
		return
	}
	err = h.store.RecordRun(ctx, &storage.RunRecord{
		ID:          report.RunID,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		TotalMerged: report.TotalMerged,
		Detail:      string(detail),
	})
	if err != nil {
		h.logger.Printf("record run %s: %v", report.RunID, err)
	}
}

// QueryHistory returns merged records, most recent first. An empty b
// means all browsers; a non-positive limit means storage.DefaultQueryLimit.
func (h *Harvester) QueryHistory(ctx context.Context, b browser.Browser, limit int) ([]storage.HistoryRecord, error) {
	if b != "" && !b.Valid() {
		return nil, fmt.Errorf("query history: unknown browser %q", b)
	}
	return h.store.Query(ctx, storage.HistoryQuery{Browser: b, Limit: limit})
}

// GetStats returns totals computed from the store at call time.
func (h *Harvester) GetStats(ctx context.Context) (*storage.Stats, error) {
	return h.store.Stats(ctx)
}

// LastRun returns the audit entry of the most recent extraction, or nil.
func (h *Harvester) LastRun(ctx context.Context) (*storage.RunRecord, error) {
	return h.store.LastRun(ctx)
}
